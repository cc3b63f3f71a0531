package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/database/mongoclient"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/bundle"
	"github.com/x-xyz/settlement/service/query"
)

type bundleMongoRepo struct {
	q query.Mongo
}

func NewBundleRepo(q query.Mongo) bundle.Repo {
	return &bundleMongoRepo{
		q: q,
	}
}

func (r *bundleMongoRepo) FindOne(c bCtx.Ctx, id bundle.Id) (*bundle.Listing, error) {
	id.Seller = id.Seller.ToLower()
	qry, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	res := &bundle.Listing{}
	if err := r.q.FindOne(c, domain.TableBundles, qry, res); err == query.ErrNotFound {
		return nil, domain.ErrBundleNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *bundleMongoRepo) FindAll(c bCtx.Ctx, optFns ...bundle.FindAllOptionsFunc) ([]*bundle.Listing, error) {
	opts, err := bundle.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("bundle.GetFindAllOptions failed")
		return nil, err
	}

	qry := bson.M{}
	if opts.Seller != nil {
		qry["seller"] = opts.Seller.ToLower()
	}
	if opts.Nft != nil {
		qry["entries.nft"] = opts.Nft.ToLower()
	}

	offset := int32(0)
	limit := int32(0)
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	res := []*bundle.Listing{}
	if err := r.q.Search(c, domain.TableBundles, int(offset), int(limit), "startingTime", qry, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *bundleMongoRepo) Upsert(c bCtx.Ctx, l *bundle.Listing) error {
	l.LowerCase()
	selector, err := mongoclient.MakeBsonM(l.ToId())
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(c, domain.TableBundles, selector, l); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  l.ToId(),
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *bundleMongoRepo) Patch(c bCtx.Ctx, id bundle.Id, patchable bundle.Patchable) error {
	id.Seller = id.Seller.ToLower()
	selector, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	update, err := mongoclient.MakeBsonM(patchable)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Patch(c, domain.TableBundles, selector, update); err == query.ErrNotFound {
		return domain.ErrBundleNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Patch failed")
		return err
	}
	return nil
}

func (r *bundleMongoRepo) Remove(c bCtx.Ctx, id bundle.Id) error {
	id.Seller = id.Seller.ToLower()
	selector, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Remove(c, domain.TableBundles, selector); err == query.ErrNotFound {
		return domain.ErrBundleNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Remove failed")
		return err
	}
	return nil
}
