package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/service/query"
)

type recordMongoRepo struct {
	q query.Mongo
}

func NewRecordRepo(q query.Mongo) domain.RecordRepo {
	return &recordMongoRepo{
		q: q,
	}
}

func (r *recordMongoRepo) Insert(c bCtx.Ctx, record *domain.Record) error {
	if err := r.q.Insert(c, domain.TableSettlements, record); err != nil {
		c.WithFields(log.Fields{
			"err":  err,
			"kind": record.Kind,
		}).Error("q.Insert failed")
		return err
	}
	return nil
}

func (r *recordMongoRepo) FindAll(c bCtx.Ctx, kind *domain.RecordKind, offset, limit int32) ([]*domain.Record, error) {
	qry := bson.M{}
	if kind != nil {
		qry["kind"] = *kind
	}
	res := []*domain.Record{}
	if err := r.q.Search(c, domain.TableSettlements, int(offset), int(limit), "-timestamp", qry, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}
