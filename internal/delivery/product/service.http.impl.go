package product

import (
	"context"

	"github.com/ringbrew/gsv/service"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"go.uber.org/zap"
)

type Service struct {
	ctx *domain.UseCaseContext

	name   string
	remark string
	desc   service.Description
}

func NewService(ctx *domain.UseCaseContext, uc *product.UseCase) service.Service {
	s := &Service{
		ctx:    ctx,
		name:   "product",
		remark: "商品模块",
	}

	if err := Prepare(context.Background(), ctx, uc); err != nil {
		ctx.Logger.Fatal("prepare catalog failed", zap.Error(err))
	}

	handler := NewHandler(ctx, uc)
	s.desc.HttpRoute = append(s.desc.HttpRoute, handler.HttpRoute()...)
	return s
}

// Prepare seeds an empty catalog from the configured archive and, when
// forceRebuild is set, rebuilds the search indexes from the catalog.
func Prepare(c context.Context, ctx *domain.UseCaseContext, uc *product.UseCase) error {
	count, err := uc.Count(c)
	if err != nil {
		return err
	}

	if count == 0 && ctx.Config.Seed != "" {
		data, err := NewDataReader(ctx.Config.Seed).Read()
		if err != nil {
			return err
		}
		n, err := uc.BatchCreate(c, data)
		if err != nil {
			return err
		}
		ctx.Logger.Info("catalog seeded", zap.String("seed", ctx.Config.Seed), zap.Int("products", n))
		return nil
	}

	if ctx.Config.ForceRebuild {
		if err := uc.Rebuild(c); err != nil {
			return err
		}
		ctx.Logger.Info("search indexes rebuilt", zap.Int64("products", count))
	}
	return nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Remark() string {
	return s.remark
}

func (s *Service) Description() service.Description {
	return s.desc
}
