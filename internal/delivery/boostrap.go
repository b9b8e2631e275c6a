package delivery

import (
	"net/http"

	"github.com/ringbrew/gsv/server"
	"github.com/ringbrew/gsv/service"
	"github.com/ringbrew/newaim/ecommerce/internal/delivery/product"
	"github.com/ringbrew/newaim/ecommerce/internal/delivery/search"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	domainproduct "github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	domainsearch "github.com/ringbrew/newaim/ecommerce/internal/domain/search"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"github.com/rs/cors"
)

func NewServer(ctx *domain.UseCaseContext) server.Server {
	opt := server.Classic()
	opt.Name = "ecommerce"
	opt.Host = ctx.Config.Host
	opt.Port = ctx.Config.Port
	opt.HttpMiddleware = append(opt.HttpMiddleware, cors.AllowAll())

	return server.NewServer(server.HTTP, &opt)
}

func ServiceList(ctx *domain.UseCaseContext, uc *domainproduct.UseCase, engine *domainsearch.Engine) []service.Service {
	return []service.Service{
		product.NewService(ctx, uc),
		search.NewService(ctx, engine),
		newMetricsService(),
	}
}

type metricsService struct {
	desc service.Description
}

func newMetricsService() service.Service {
	s := &metricsService{}
	s.desc.HttpRoute = append(s.desc.HttpRoute,
		service.NewHttpRoute(http.MethodGet, "/metrics", metrics.Handler(), service.HttpMeta{
			Remark: "prometheus 指标",
		}),
	)
	return s
}

func (s *metricsService) Name() string {
	return "metrics"
}

func (s *metricsService) Remark() string {
	return "监控指标"
}

func (s *metricsService) Description() service.Description {
	return s.desc
}
