// Command p2term-ingest drives the ingestion core against a real
// Propeller 2 serial port: open the port, wire the ring/extractor/
// router/arbiter/reset pipeline, watch DTR for a board reset, and
// expose metrics for scraping.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	goserial "github.com/daedaluz/goserial"

	p2term "github.com/ironsheep/pnutterm-ingest"
	"github.com/ironsheep/pnutterm-ingest/internal/config"
	"github.com/ironsheep/pnutterm-ingest/internal/logging"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/reset"
)

func main() {
	root := &cobra.Command{
		Use:   "p2term-ingest",
		Short: "Propeller 2 terminal serial ingestion core",
	}
	root.AddCommand(runCmd(), pulseDTRCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		portName    string
		baud        int
		configPath  string
		metricsAddr string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a serial port and ingest a running board's output",
		RunE: func(cmd *cobra.Command, args []string) error {
			logConfig := logging.DefaultConfig()
			if verbose {
				logConfig.Level = logging.LevelDebug
			}
			logger := logging.NewLogger(logConfig)
			logging.SetDefault(logger)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			port, err := openPort(portName, baud)
			if err != nil {
				return fmt.Errorf("open %s: %w", portName, err)
			}
			defer port.Close()

			transport := newPollingTransport(port)

			console := newConsoleDestination("console")
			destinations := []p2term.DestinationBinding{
				{Destination: console, Kinds: []message.Kind{
					message.CogMessage, message.TerminalOutput, message.BacktickWindow, message.DebuggerPacket,
				}},
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ing, err := p2term.CreateAndServe(ctx, p2term.Params{
				Config:       cfg,
				Transport:    transport,
				Destinations: destinations,
			}, &p2term.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("create ingestor: %w", err)
			}

			collector := p2term.NewPrometheusCollector(ing.Metrics(), prometheus.Labels{"port": portName})
			registry := prometheus.NewRegistry()
			registry.MustRegister(collector)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(ing.MetricsSnapshot())
			})
			srv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server stopped", "err", err)
				}
			}()
			logger.Info("metrics exposed", "addr", metricsAddr)

			stopDTR := watchDTR(ctx, port, logger, ing.RequestReset)
			defer stopDTR()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
			return ing.Close(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&portName, "port", "/dev/ttyUSB0", "Serial device path")
	cmd.Flags().IntVar(&baud, "baud", 2000000, "Baud rate")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML tuning config (optional)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9110", "Address to serve Prometheus metrics on")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	return cmd
}

func pulseDTRCmd() *cobra.Command {
	var portName string
	var holdMs int

	cmd := &cobra.Command{
		Use:   "pulse-dtr",
		Short: "Toggle DTR low then high, like a terminal program resetting the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := openPort(portName, 2000000)
			if err != nil {
				return fmt.Errorf("open %s: %w", portName, err)
			}
			defer port.Close()

			if err := port.DisableModemLines(goserial.TIOCM_DTR); err != nil {
				return fmt.Errorf("lower dtr: %w", err)
			}
			time.Sleep(time.Duration(holdMs) * time.Millisecond)
			if err := port.EnableModemLines(goserial.TIOCM_DTR); err != nil {
				return fmt.Errorf("raise dtr: %w", err)
			}
			fmt.Println("dtr pulsed")
			return nil
		},
	}
	cmd.Flags().StringVar(&portName, "port", "/dev/ttyUSB0", "Serial device path")
	cmd.Flags().IntVar(&holdMs, "hold-ms", 50, "Milliseconds to hold DTR low")
	return cmd
}

func statsCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch and print a running ingestor's metrics snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get("http://" + metricsAddr + "/status")
			if err != nil {
				return fmt.Errorf("fetch status: %w", err)
			}
			defer resp.Body.Close()

			var snap p2term.MetricsSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:9110", "Address the running ingestor exposes metrics on")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func openPort(name string, baud int) (*goserial.Port, error) {
	port, err := goserial.Open(name, goserial.NewOptions())
	if err != nil {
		return nil, err
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, fmt.Errorf("make raw: %w", err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("get attr: %w", err)
	}
	attrs.SetCustomSpeed(uint32(baud))
	if err := port.SetAttr2(goserial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("set attr: %w", err)
	}
	return port, nil
}

// watchDTR polls the port's modem lines for a DTR rising edge at a
// fixed cadence — goserial exposes no interrupt-driven line-status
// notification, so this mirrors how a terminal program would notice a
// host-initiated reset pulse.
func watchDTR(ctx context.Context, port *goserial.Port, logger *logging.Logger, onReset func(reset.Level)) func() {
	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()

		wasHigh := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				lines, err := port.GetModemLines()
				if err != nil {
					logger.Debug("dtr poll failed", "err", err)
					continue
				}
				isHigh := lines&goserial.TIOCM_DTR != 0
				if isHigh && !wasHigh {
					onReset(reset.High)
				} else if !isHigh {
					onReset(reset.Low)
				}
				wasHigh = isHigh
			}
		}
	}()
	return func() { close(stopCh) }
}
