package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/capsulehq/keepsake/internal/blob"
	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/server"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dbname = "keepsake.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "keepsake",
		Short:   "Keepsake memory capsule server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func setupLogger(konf *koanf.Koanf) error {
	level, err := logrus.ParseLevel(konf.String("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if filename := konf.String("log.file"); filename != "" {
		rotated := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    64, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, rotated))
	}
	return nil
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf := koanf.New(".")
			if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(c *coral.Command, _ []string) error {
			konf := koanf.New(".")
			if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
				return err
			}

			if err := setupLogger(konf); err != nil {
				return err
			}

			db, err := database.StormOpen(dbnameWithPath(konf.String("database_path")))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			if konf.String("s3.bucket") == "" {
				logrus.Warn("s3.bucket is not configured; uploads and image cleanup will fail")
			}
			blobs, err := blob.NewS3Store(c.Context(), blob.S3Config{
				Bucket:    konf.String("s3.bucket"),
				Region:    konf.String("s3.region"),
				Endpoint:  konf.String("s3.endpoint"),
				PublicURL: konf.String("s3.public_url"),
				SignTTL:   konf.Duration("s3.sign_ttl"),
			})
			if err != nil {
				return errors.Wrap(err, "could not create blob store")
			}

			engine := server.EchoEngine(server.Controller{
				Version:  version,
				Database: db,
				Blobs:    blobs,
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			logrus.Infof("Server listening on %s", address)
			return errors.Wrap(engine.Start(address), "could not run server")
		},
	}
)
