package usecase

import (
	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

type impl struct {
	payToken domain.PayTokenRepo
}

func New(payToken domain.PayTokenRepo) domain.PayTokenUseCase {
	return &impl{
		payToken: payToken,
	}
}

func (im *impl) IsSupported(c ctx.Ctx, address domain.Address) (bool, error) {
	if _, err := im.payToken.FindOne(c, address); err == domain.ErrNotFound {
		return false, nil
	} else if err != nil {
		c.WithField("err", err).Error("payToken.FindOne failed")
		return false, err
	}
	return true, nil
}

func (im *impl) Register(c ctx.Ctx, payToken *domain.PayToken) error {
	if err := im.payToken.Upsert(c, payToken); err != nil {
		c.WithField("err", err).Error("payToken.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) Deregister(c ctx.Ctx, address domain.Address) error {
	if err := im.payToken.Remove(c, address); err == domain.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("payToken.Remove failed")
		return err
	}
	return nil
}
