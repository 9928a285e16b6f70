package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/step.report/internal/api"
	"github.com/banshee-data/step.report/internal/config"
	"github.com/banshee-data/step.report/internal/db"
	"github.com/banshee-data/step.report/internal/export"
	"github.com/banshee-data/step.report/internal/fsutil"
	"github.com/banshee-data/step.report/internal/publish"
	"github.com/banshee-data/step.report/internal/security"
	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/timeutil"
	"github.com/banshee-data/step.report/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a JSON or YAML tuning config (defaults built in)")
	seedFlag    = flag.String("seed", "", "Generator seed (default: from config, else the clock)")
	csvPath     = flag.String("csv", export.DefaultCSVPath, "Where menu option C and -batch write the step record")
	dbPath      = flag.String("db", "", "SQLite file to snapshot the session into (disabled when empty)")
	plotPath    = flag.String("plot", "", "Write a PNG plot of the filtered signal to this path")
	chartPath   = flag.String("chart", "", "Write an HTML chart of the filtered signal to this path")
	listen      = flag.String("listen", "", "Serve the HTTP API on this address, e.g. :8080")
	mqttBroker  = flag.String("mqtt", "", "Publish sessions to this MQTT broker, e.g. tcp://localhost:1883")
	mqttTopic   = flag.String("mqtt-topic", publish.DefaultTopicPrefix, "MQTT topic prefix")
	batch       = flag.Bool("batch", false, "Print the totals and write the CSV without the interactive menu")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadTuning reads the tuning document at path, or the built-in defaults
// when path is empty, and applies a seed override.
func loadTuning(path, seed string) (*config.TuningConfig, error) {
	tuning := config.EmptyTuningConfig()
	if path != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(path); err != nil {
			return nil, err
		}
	}
	if seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -seed %q: %w", seed, err)
		}
		tuning.Seed = &v
	}
	return tuning, nil
}

// outputs are the optional file sinks selected on the command line.
type outputs struct {
	db    string
	plot  string
	chart string
}

// writeOutputs writes every configured sink for sess and returns the open
// snapshot database, if any, for the API to keep saving into.
func writeOutputs(fsys fsutil.FileSystem, sess *session.Session, out outputs) (*db.DB, error) {
	tr := export.TraceOf(sess)
	if out.plot != "" {
		n, err := export.WritePlotFile(fsys, out.plot, tr)
		if err != nil {
			return nil, err
		}
		log.Printf("wrote plot %s (%s)", out.plot, humanize.Bytes(uint64(n)))
	}
	if out.chart != "" {
		n, err := export.WriteChartFile(fsys, out.chart, tr)
		if err != nil {
			return nil, err
		}
		log.Printf("wrote chart %s (%s)", out.chart, humanize.Bytes(uint64(n)))
	}
	if out.db == "" {
		return nil, nil
	}

	if err := security.ValidateExportPath(out.db); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	database, err := db.NewDB(out.db)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.SaveSession(sess); err != nil {
		database.Close()
		return nil, fmt.Errorf("save session: %w", err)
	}
	log.Printf("saved session %s to %s", sess.ID, out.db)
	return database, nil
}

// runBatch prints the step total and writes the CSV record.
func runBatch(w io.Writer, fsys fsutil.FileSystem, sess *session.Session, csv string) error {
	fmt.Fprintf(w, "Session %s: %s samples at %d Hz, seed %d\n",
		sess.ID, humanize.Comma(int64(len(sess.Samples))), sess.Config.SampleRate, sess.Seed)
	fmt.Fprintf(w, "Total Steps Detected: %d\n", sess.TotalDetected())

	n, err := export.WriteCSVFile(fsys, csv, sess.Result.Events)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s (%s)\n", csv, humanize.Bytes(uint64(n)))
	return nil
}

// mode selects what runs once the session exists: batch output, the menu,
// the API, or the API alongside one of the others.
type mode struct {
	listen string
	batch  bool
	csv    string
}

// run drives the selected mode over the session server is serving. With
// listen set, it returns only after the HTTP server has shut down.
func run(ctx context.Context, in io.Reader, out io.Writer, fsys fsutil.FileSystem, server *api.Server, m mode) error {
	if m.batch {
		if err := runBatch(out, fsys, server.Session(), m.csv); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		if m.listen == "" {
			return nil
		}
		return serveAPI(ctx, m.listen, server)
	}

	if m.listen == "" {
		if err := runMenu(in, out, fsys, server.Session, m.csv); err != nil {
			return fmt.Errorf("menu: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		err := serveAPI(ctx, m.listen, server)
		if err != nil {
			log.Printf("failed to serve: %v", err)
		}
		done <- err
	}()

	// The menu reads whichever session the API is currently serving.
	menuErr := runMenu(in, out, fsys, server.Session, m.csv)
	cancel()
	serveErr := <-done
	if menuErr != nil {
		return fmt.Errorf("menu: %w", menuErr)
	}
	return serveErr
}

// serveAPI runs the HTTP API until ctx is cancelled.
func serveAPI(ctx context.Context, addr string, server *api.Server) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: api.LoggingMiddleware(server.ServeMux()),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving step API on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := httpServer.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("steps %s\n", version.String())
		return
	}

	if flag.Arg(0) == "migrate" {
		path := *dbPath
		if path == "" {
			path = "steps.db"
		}
		if err := db.RunMigrateCommand(os.Stdout, flag.Args()[1:], path); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	tuning, err := loadTuning(*configFile, *seedFlag)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	runner := session.NewRunner(tuning, timeutil.RealClock{})
	sess, err := runner.Run(runner.DefaultSeed())
	if err != nil {
		log.Fatalf("session failed: %v", err)
	}

	fsys := fsutil.OSFileSystem{}
	database, err := writeOutputs(fsys, sess, outputs{db: *dbPath, plot: *plotPath, chart: *chartPath})
	if err != nil {
		log.Fatalf("failed to write outputs: %v", err)
	}
	if database != nil {
		defer database.Close()
	}

	var publisher *publish.Publisher
	if *mqttBroker != "" {
		if publisher, err = publish.Connect(*mqttBroker, "", *mqttTopic); err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer publisher.Close()
		if err := publisher.PublishSession(sess); err != nil {
			log.Fatalf("failed to publish session: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stores api.MultiStore
	if database != nil {
		stores = append(stores, database)
	}
	if publisher != nil {
		stores = append(stores, publisher)
	}
	server := api.NewServer(runner, sess, stores)
	if database != nil {
		server.SetSnapshots(database)
	}

	if err := run(ctx, os.Stdin, os.Stdout, fsys, server, mode{listen: *listen, batch: *batch, csv: *csvPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
