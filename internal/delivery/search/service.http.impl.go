package search

import (
	"github.com/ringbrew/gsv/service"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/search"
)

type Service struct {
	ctx *domain.UseCaseContext

	name   string
	remark string
	desc   service.Description
}

func NewService(ctx *domain.UseCaseContext, engine *search.Engine) service.Service {
	s := &Service{
		ctx:    ctx,
		name:   "search",
		remark: "搜索模块",
	}

	handler := NewHandler(ctx, engine)
	s.desc.HttpRoute = append(s.desc.HttpRoute, handler.HttpRoute()...)
	return s
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
