package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/database/mongoclient"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/auction"
	"github.com/x-xyz/settlement/service/query"
)

type auctionMongoRepo struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.Repo {
	return &auctionMongoRepo{
		q: q,
	}
}

func (r *auctionMongoRepo) FindOne(c bCtx.Ctx, id auction.Id) (*auction.Auction, error) {
	id.Nft = id.Nft.ToLower()
	id.Seller = id.Seller.ToLower()
	qry, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	res := &auction.Auction{}
	if err := r.q.FindOne(c, domain.TableAuctions, qry, res); err == query.ErrNotFound {
		return nil, domain.ErrAuctionNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *auctionMongoRepo) FindAll(c bCtx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
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
	if opts.Resulted != nil {
		qry["resulted"] = *opts.Resulted
	}

	offset := int32(0)
	limit := int32(0)
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	res := []*auction.Auction{}
	if err := r.q.Search(c, domain.TableAuctions, int(offset), int(limit), "endTime", qry, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *auctionMongoRepo) Upsert(c bCtx.Ctx, a *auction.Auction) error {
	a.LowerCase()
	selector, err := mongoclient.MakeBsonM(a.ToId())
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(c, domain.TableAuctions, selector, a); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  a.ToId(),
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) Patch(c bCtx.Ctx, id auction.Id, patchable auction.Patchable) error {
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
	if err := r.q.Patch(c, domain.TableAuctions, selector, update); err == query.ErrNotFound {
		return domain.ErrAuctionNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Patch failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) Remove(c bCtx.Ctx, id auction.Id) error {
	id.Nft = id.Nft.ToLower()
	id.Seller = id.Seller.ToLower()
	selector, err := mongoclient.MakeBsonM(id)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Remove(c, domain.TableAuctions, selector); err == query.ErrNotFound {
		return domain.ErrAuctionNotFound
	} else if err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("q.Remove failed")
		return err
	}
	return nil
}
