package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/menu"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/observer"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/contentmoderator"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/customvision"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/luis"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/mediaservices"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/qnamaker"
)

// app holds the process-wide dependencies shared by the samples.
type app struct {
	cfg     *config.Config
	logger  logger.Logger
	metrics *observer.Metrics
	nc      *nats.Conn
	rdb     *redis.Client
	server  *http.Server
}

func run(ctx context.Context, c *cli.Command) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	l := logger.NewLogrusLogger(logger.NewLogrus(cfg.LogSettings, os.Stderr))
	logger.SetDefault(l)

	a, err := newApp(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer a.close()

	m := menu.New(os.Stdin, os.Stdout)
	if err := a.register(m); err != nil {
		return err
	}
	err = m.Run(ctx)
	if errors.Is(err, poll.ErrCancelled) || errors.Is(err, context.Canceled) {
		l.Info("Interrupted.")
		return nil
	}
	return err
}

func newApp(ctx context.Context, cfg *config.Config, l logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: l}

	if cfg.Prometheus.Enable {
		reg := prometheus.NewRegistry()
		metrics, err := observer.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		a.metrics = metrics
		mux := http.NewServeMux()
		mux.Handle(cfg.Prometheus.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{
			Addr:              cfg.Prometheus.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Error("Metrics server failed.", "error", err)
			}
		}()
	}

	if cfg.NatsInfo.Enable {
		nc, err := observer.ConnectNATS(cfg.NatsInfo.URL, "cogsamples")
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.nc = nc
	}

	if cfg.RedisInfo.Enable {
		info := cfg.RedisInfo
		a.rdb = observer.NewRedisClient(info.Host, info.Username, info.Password, info.DBName)
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if a.nc != nil {
		_ = a.nc.Drain()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// env builds the polling environment of a service.
func (a *app) env(ctx context.Context, svc config.ServiceInfo) (samples.Env, error) {
	policy, err := a.cfg.PollPolicy(svc)
	if err != nil {
		return samples.Env{}, err
	}
	env := samples.Env{Policy: policy, Logger: a.logger}
	env.Observer = func(service, jobID string) poll.Observer {
		observers := []poll.Observer{observer.Log(a.logger, service, jobID)}
		if a.metrics != nil {
			observers = append(observers, a.metrics.Observer(service))
		}
		if a.nc != nil {
			observers = append(observers,
				observer.NATS(a.nc, a.cfg.NatsInfo.Subject, service, jobID, a.logger))
		}
		if a.rdb != nil {
			observers = append(observers, observer.Redis(ctx, a.rdb, a.cfg.RedisInfo.KeyPrefix,
				service, jobID, a.cfg.RedisInfo.TTL, a.logger))
		}
		return observer.Chain(observers...)
	}
	if a.metrics != nil {
		env.Outcome = a.metrics.Outcome
	}
	return env, nil
}

type runner interface {
	Run(ctx context.Context, out io.Writer) error
}

// handler defers the client construction to the moment a sample is
// picked, so that only the chosen service needs a key.
func (a *app) handler(svc config.ServiceInfo, credential samples.Credential,
	build func(samples.Env, *rest.Client) runner) menu.Handler {
	return func(ctx context.Context, out io.Writer) error {
		env, err := a.env(ctx, svc)
		if err != nil {
			return err
		}
		client, err := samples.NewClient(svc, a.cfg.HTTP, credential, nil, a.logger)
		if err != nil {
			return err
		}
		return build(env, client).Run(ctx, out)
	}
}

func (a *app) register(m *menu.Menu) error {
	cfg := a.cfg
	entries := []struct {
		category, name string
		handler        menu.Handler
	}{
		{"Vision", "ContentModerator", a.handler(cfg.ContentModerator.ServiceInfo, samples.SubscriptionKey,
			func(env samples.Env, c *rest.Client) runner {
				return contentmoderator.NewSession(c, cfg.ContentModerator, env)
			})},
		{"Vision", "MediaServices", a.handler(cfg.MediaServices.ServiceInfo, samples.BearerToken,
			func(env samples.Env, c *rest.Client) runner {
				return mediaservices.NewSession(c, cfg.MediaServices, env)
			})},
		{"Vision", "CustomVision", a.handler(cfg.CustomVision.ServiceInfo, samples.TrainingKey,
			func(env samples.Env, c *rest.Client) runner {
				return customvision.NewSession(c, cfg.CustomVision, env)
			})},
		{"Language", "LUIS", a.handler(cfg.LUIS.ServiceInfo, samples.SubscriptionKey,
			func(env samples.Env, c *rest.Client) runner {
				return luis.NewSession(c, cfg.LUIS, env)
			})},
		{"Language", "QnAMaker", a.handler(cfg.QnAMaker.ServiceInfo, samples.SubscriptionKey,
			func(env samples.Env, c *rest.Client) runner {
				return qnamaker.NewSession(c, cfg.QnAMaker, env)
			})},
	}
	for _, e := range entries {
		if err := m.AddSample(e.category, e.name, e.handler); err != nil {
			return err
		}
	}
	return nil
}
