package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/undeadpelmen/acbot/internal/actuator"
	"github.com/undeadpelmen/acbot/internal/comfort"
	"github.com/undeadpelmen/acbot/internal/config"
	"github.com/undeadpelmen/acbot/internal/controller"
	"github.com/undeadpelmen/acbot/internal/gpio"
	"github.com/undeadpelmen/acbot/internal/logging"
	"github.com/undeadpelmen/acbot/internal/notify"
	"github.com/undeadpelmen/acbot/internal/sensor"
	"github.com/undeadpelmen/acbot/internal/settings"
	"github.com/undeadpelmen/acbot/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	cmd := &cobra.Command{
		Use:          "acbot",
		Short:        "Presses the AC power button when the room gets uncomfortable",
		Version:      web.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cfg.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newScoreCmd(&cfg))
	return cmd
}

// hardware is whatever the selected backend managed to bring up.
type hardware struct {
	source sensor.Source
	servo  actuator.Servo
	buzzer actuator.Buzzer
	close  func() error
}

func setupHardware(cfg config.Config, log zerolog.Logger) (*hardware, error) {
	if cfg.Backend == "mock" {
		m := actuator.NewMock()
		return &hardware{source: sensor.NewMock(), servo: m, buzzer: m, close: m.Close}, nil
	}

	// periph always owns the DHT22 line; the other backends only take over
	// the servo and buzzer.
	pins := gpio.Pins{DHT: cfg.DHTPin}
	if cfg.Backend == "periph" {
		pins.Servo = cfg.ServoPin
		pins.Buzzer = cfg.BuzzerPin
	}
	board, err := gpio.NewBoard(pins, log)
	if err != nil {
		return nil, err
	}
	hw := &hardware{source: sensor.NewDHT22(board.DHTPin()), close: board.Close}

	switch cfg.Backend {
	case "periph":
		if s := board.Servo(); s != nil {
			hw.servo = s
		}
		if b := board.Buzzer(); b != nil {
			hw.buzzer = b
		}
	case "gobot":
		g, err := actuator.NewGobot(cfg.ServoPin, cfg.BuzzerPin)
		if err != nil {
			board.Close()
			return nil, err
		}
		hw.servo, hw.buzzer = g, g
		hw.close = func() error { return errors.Join(g.Close(), board.Close()) }
	case "rpio":
		r, err := actuator.NewRPIO(cfg.ServoPin, cfg.BuzzerPin)
		if err != nil {
			board.Close()
			return nil, err
		}
		hw.servo, hw.buzzer = r, r
		hw.close = func() error { return errors.Join(r.Close(), board.Close()) }
	}
	return hw, nil
}

func setupNotifier(cfg config.Config, log zerolog.Logger) (*notify.Multi, func()) {
	multi := notify.NewMulti(log)
	cleanup := func() {}

	if cfg.TelegramToken != "" {
		multi.Add(notify.NewTelegram(cfg.TelegramURL, cfg.TelegramToken, cfg.TelegramChatID, cfg.HTTPTimeout))
	}
	if cfg.FormURL != "" {
		multi.Add(notify.NewGoogleForm(cfg.FormURL, cfg.FormFields, cfg.HTTPTimeout))
	}
	if cfg.MQTTBroker != "" {
		m, err := notify.NewMQTT(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Prefix:   cfg.MQTTPrefix,
			QoS:      1,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("mqtt disabled")
		} else {
			multi.Add(m)
			cleanup = m.Close
		}
	}
	return multi, cleanup
}

func run(parent context.Context, cfg config.Config) error {
	log := logging.New(cfg.LogLevel)
	runID := uuid.NewString()
	log = log.With().Str("run_id", runID).Logger()
	log.Info().Str("version", web.Version).Str("backend", cfg.Backend).Msg("acbot starting")

	hw, err := setupHardware(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("hardware init failed, switching to mock mode")
		cfg.Backend = "mock"
		if hw, err = setupHardware(cfg, log); err != nil {
			return err
		}
	}
	defer func() {
		if err := hw.close(); err != nil {
			log.Warn().Err(err).Msg("release hardware")
		}
	}()

	if r, err := sensor.ReadWithRetry(parent, hw.source, 2, sensor.MinPeriod); err != nil {
		log.Warn().Err(err).Msg("DHT22 is not responding")
	} else {
		log.Info().Float64("temperature", r.Temperature).Float64("humidity", r.Humidity).Msg("DHT22 ok")
	}

	presser := actuator.NewPresser(hw.servo, cfg.ServoEnabled, log)
	beeper := actuator.NewBeeper(hw.buzzer)
	if err := presser.Park(parent, actuator.DefaultGeometry.HandsUp); err != nil {
		log.Warn().Err(err).Msg("park servo")
	}
	if err := beeper.BeepTwice(parent); err != nil {
		log.Warn().Err(err).Msg("startup beep")
	}

	notifier, closeNotifier := setupNotifier(cfg, log)
	defer closeNotifier()
	log.Info().Int("sinks", notifier.Len()).Msg("notifications configured")

	source := settings.NewSource(cfg.SheetURL, settings.NewHTTPFetcher(cfg.HTTPTimeout))
	sampler := sensor.NewSampler(hw.source, cfg.SampleGap, log)
	loc := cfg.Location()

	ctrl := controller.New(source, sampler, presser, notifier, log, controller.Options{
		RunID:         runID,
		Location:      loc,
		FallbackSleep: cfg.FallbackSleep,
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(loopDone)
	}()

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: web.NewWebAPI(ctrl, hw.source, loc, log).SetupRouter(),
		}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("status API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown")
		}
	}

	select {
	case <-loopDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("control loop did not stop in time")
	}

	log.Info().Msg("acbot stopped")
	return nil
}

func newScoreCmd(cfg *config.Config) *cobra.Command {
	var temp, humidity float64
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Fetch the settings sheet once and score a temperature/humidity pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.SheetURL == "" {
				return errors.New("sheet-url is required")
			}
			src := settings.NewSource(cfg.SheetURL, settings.NewHTTPFetcher(cfg.HTTPTimeout))
			s, err := src.Load(cmd.Context())
			if err != nil {
				return err
			}
			hour := time.Now().In(cfg.Location()).Hour()
			on, off := s.Thresholds(hour)
			score := comfort.Score(temp, humidity, s.Comfort())
			d := controller.Decide(controller.Input{
				Score:         score,
				OnThreshold:   on,
				OffThreshold:  off,
				MaxWarnings:   s.MaxWarningCount,
				TurnOnEnabled: s.TurnOnEnabled(),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "score %.2f (on > %.2f, off < %.2f): from off the controller would %s\n",
				score, on, off, d.Action)
			return nil
		},
	}
	cmd.Flags().Float64Var(&temp, "temperature", 0, "temperature in °C")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "relative humidity in %")
	cmd.MarkFlagRequired("temperature")
	cmd.MarkFlagRequired("humidity")
	return cmd
}
