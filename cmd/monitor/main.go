package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethwatch/deposit-monitor/config"
	"github.com/ethwatch/deposit-monitor/ethclient"
	"github.com/ethwatch/deposit-monitor/logging"
	"github.com/ethwatch/deposit-monitor/monitor"
	"github.com/ethwatch/deposit-monitor/notify"
	"github.com/ethwatch/deposit-monitor/presenter"
)

func main() {
	logger := logging.New(logrus.InfoLevel)

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger = logging.New(cfg.LogLevel.Level())

	client, err := ethclient.NewClient(cfg.Eth.RPC.Host, cfg.Eth.RPC.Timeout.Duration())
	if err != nil {
		logger.WithError(err).Fatal("can't start eth client")
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.WithError(err).Fatal("can't start telegram notifier")
	}

	m := monitor.NewDepositMonitor(logger.WithField("service", "monitor"), client, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = m.Initialize(ctx); err != nil {
		logger.WithError(err).Fatal("can't initialize deposit monitor")
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		m.Start(ctx)
		return nil
	})
	if cfg.Presenter != nil && cfg.Presenter.Host != "" {
		pr := presenter.NewPresenter(logger.WithField("service", "presenter"), m)
		eg.Go(func() error {
			return pr.Serve(cfg.Presenter.Host)
		})
	}
	eg.Go(func() error {
		sig := <-notifyTermination()
		logger.WithField("signal", sig.String()).Info("caught termination signal, shutting down")
		os.Exit(0)
		return nil
	})

	if err = eg.Wait(); err != nil {
		logger.WithError(err).Fatal("service terminated")
	}
}

// notifyTermination registers the conventional termination signals.
func notifyTermination() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return c
}
