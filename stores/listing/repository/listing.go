package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/database/mongoclient"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/listing"
	"github.com/x-xyz/settlement/service/query"
)

type listingMongoRepo struct {
	q query.Mongo
}

func NewListingRepo(q query.Mongo) listing.Repo {
	return &listingMongoRepo{
		q: q,
	}
}

func (r *listingMongoRepo) FindOne(c bCtx.Ctx, id listing.Id) (*listing.Listing, error) {
	id.Nft = id.Nft.ToLower()
	id.Seller = id.Seller.ToLower()
	qry, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	res := &listing.Listing{}
	if err := r.q.FindOne(c, domain.TableListings, qry, res); err == query.ErrNotFound {
		return nil, domain.ErrListingNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *listingMongoRepo) FindAll(c bCtx.Ctx, optFns ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return nil, err
	}

	qry := bson.M{}
	if opts.Nft != nil {
		qry["nft"] = opts.Nft.ToLower()
	}
	if opts.TokenId != nil {
		qry["tokenId"] = *opts.TokenId
	}
	if opts.Seller != nil {
		qry["seller"] = opts.Seller.ToLower()
	}

	offset := int32(0)
	limit := int32(0)
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	res := []*listing.Listing{}
	if err := r.q.Search(c, domain.TableListings, int(offset), int(limit), "startingTime", qry, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *listingMongoRepo) Upsert(c bCtx.Ctx, l *listing.Listing) error {
	l.LowerCase()
	selector, err := mongoclient.MakeBsonM(l.ToId())
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(c, domain.TableListings, selector, l); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  l.ToId(),
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *listingMongoRepo) Patch(c bCtx.Ctx, id listing.Id, patchable listing.Patchable) error {
	id.Nft = id.Nft.ToLower()
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
	if err := r.q.Patch(c, domain.TableListings, selector, update); err == query.ErrNotFound {
		return domain.ErrListingNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Patch failed")
		return err
	}
	return nil
}

func (r *listingMongoRepo) Remove(c bCtx.Ctx, id listing.Id) error {
	id.Nft = id.Nft.ToLower()
	id.Seller = id.Seller.ToLower()
	selector, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Remove(c, domain.TableListings, selector); err == query.ErrNotFound {
		return domain.ErrListingNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Remove failed")
		return err
	}
	return nil
}
