package analysis

import (
	"context"
	"sync"

	"github.com/tphakala/ppewatch/internal/api"
	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/mqtt"
	"github.com/tphakala/ppewatch/internal/notification"
	"github.com/tphakala/ppewatch/internal/observability"
	"github.com/tphakala/ppewatch/internal/pipeline"
	"github.com/tphakala/ppewatch/internal/report"
)

// background runs the optional long lived services next to the main loop.
type background struct {
	wg       sync.WaitGroup
	quitChan chan struct{}
	cancel   context.CancelFunc
	cleanup  []func()
}

func (b *background) stop() {
	b.cancel()
	close(b.quitChan)
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		b.cleanup[i]()
	}
	b.wg.Wait()
}

// startBackground starts metrics, api, report scheduler and, when
// withDispatcher is set, the notification dispatcher.
func startBackground(ctx context.Context, svc *Services, build *buildinfo.Context, withDispatcher bool) *background {
	log := GetLogger()
	settings := svc.Settings
	bgCtx, cancel := context.WithCancel(ctx)
	b := &background{quitChan: make(chan struct{}), cancel: cancel}

	if svc.Metrics != nil {
		endpoint, err := observability.NewEndpoint(settings, svc.Metrics)
		if err != nil {
			log.Warn("metrics endpoint not started", logger.Error(err))
		} else {
			endpoint.Start(&b.wg, b.quitChan)
		}
	}

	var broadcaster *notification.Broadcaster
	if settings.Notification.Enabled {
		broadcaster = svc.NewBroadcaster()
	}

	if settings.API.Enabled {
		controller := api.New(svc.Store, settings, broadcaster, svc.Directory, build)
		b.wg.Go(func() {
			if err := controller.Start(bgCtx, settings.API.Listen); err != nil {
				log.Error("api server stopped", logger.Error(err))
			}
		})
	}

	if settings.Report.Schedule != "" {
		sched, err := report.NewScheduler(report.NewGenerator(svc.Store), settings.Report.Schedule,
			settings.Report.WindowDays, svc.SendToAdmins)
		if err != nil {
			log.Error("invalid report schedule", logger.String("schedule", settings.Report.Schedule), logger.Error(err))
		} else {
			sched.Start()
			b.cleanup = append(b.cleanup, sched.Stop)
		}
	}

	if withDispatcher && settings.Notification.Enabled {
		dispatcher := svc.NewDispatcher()
		b.wg.Go(func() {
			if err := dispatcher.Run(bgCtx); err != nil {
				log.Error("dispatcher stopped", logger.Error(err))
			}
		})
	}
	return b
}

// Monitor evaluates the detection stream until it ends or ctx is cancelled,
// running the dispatcher and optional services alongside. When the stream
// ends on its own, one final dispatch cycle delivers what is still pending.
func Monitor(ctx context.Context, svc *Services, build *buildinfo.Context, source detection.Source) error {
	log := GetLogger()
	settings := svc.Settings

	opts := []pipeline.Option{pipeline.WithMetrics(svc.PipelineMetrics())}
	if settings.MQTT.Enabled {
		client := mqtt.NewClient(settings, svc.MQTTMetrics())
		if err := client.Connect(ctx); err != nil {
			log.Warn("MQTT broker unavailable, violation events will not be published", logger.Error(err))
		} else {
			defer client.Disconnect()
		}
		opts = append(opts, pipeline.WithPublisher(mqtt.NewPublisher(client, settings.MQTT.Topic)))
	}

	bg := startBackground(ctx, svc, build, true)
	proc := pipeline.New(settings, svc.Store, opts...)
	runErr := proc.Run(ctx, source)
	if err := source.Close(); err != nil {
		log.Debug("failed to close detection source", logger.Error(err))
	}
	bg.stop()

	if ctx.Err() == nil && settings.Notification.Enabled {
		if _, err := svc.NewDispatcher().DispatchOnce(ctx); err != nil {
			log.Error("final dispatch failed", logger.Error(err))
		}
	}
	return runErr
}

// Dispatch runs the dispatcher and optional services until ctx is cancelled.
func Dispatch(ctx context.Context, svc *Services, build *buildinfo.Context) error {
	if !svc.Settings.Notification.Enabled {
		GetLogger().Warn("notifications are disabled, dispatcher not started")
	}
	bg := startBackground(ctx, svc, build, true)
	<-ctx.Done()
	bg.stop()
	return nil
}
