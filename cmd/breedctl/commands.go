package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/logger"
	"github.com/atinyakov/dogify/internal/models"
)

const defaultDir = ".dogify"

// cli holds the persistent flags and the backend opened for one command.
type cli struct {
	dir      string
	server   string
	token    string
	output   string
	logLevel string
	latency  bool

	log     *logger.Logger
	backend backend
	// open is replaced in tests.
	open func(c *cli) (backend, error)
}

func defaultOpen(c *cli) (backend, error) {
	if c.server != "" {
		return dialRemote(c.server, c.token, func(t string) {
			c.log.Log.Info("server issued a new token, pass it with --token to keep your images", zap.String("token", t))
		})
	}
	return openLocal(c.dir, c.latency, c.log.Log)
}

func newCLI() *cli {
	return &cli{log: logger.New(), open: defaultOpen}
}

// execute runs cmd and releases the backend whether or not the command failed.
func (c *cli) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if c.backend != nil {
		err = multierr.Append(err, c.backend.Close())
		c.backend = nil
	}
	c.log.Sync()
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "breedctl",
		Short: "Classify dog images and manage the image ledger",
		Long: `breedctl works on a local ledger directory (--dir) or, with --server,
on a running dogify gRPC server.

Breeds are identified from the image file name.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.log.InitConsole(c.logLevel); err != nil {
				return err
			}
			if c.output != "json" && c.output != "yaml" {
				return fmt.Errorf("unknown output format %q", c.output)
			}
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			b, err := c.open(c)
			if err != nil {
				return err
			}
			c.backend = b
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.dir, "dir", envOr("DOGIFY_DIR", defaultDir), "ledger directory")
	f.StringVar(&c.server, "server", os.Getenv("DOGIFY_SERVER"), "gRPC server address, overrides --dir")
	f.StringVar(&c.token, "token", os.Getenv("DOGIFY_TOKEN"), "identity token for --server")
	f.StringVarP(&c.output, "output", "o", "json", "output format: json or yaml")
	f.StringVar(&c.logLevel, "log-level", "warn", "log level")
	f.BoolVar(&c.latency, "latency", false, "simulate the dashboard latency on the local ledger")

	root.AddCommand(
		c.classifyCmd(),
		c.uploadCmd(),
		c.listCmd(),
		c.deleteCmd(),
		c.statsCmd(),
		c.breedsCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file-name>",
		Short: "Preview the breed of an image name without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.backend.Classify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !res.OK {
				return errors.New(service.UnrecognizedMessage)
			}
			return c.render(cmd.OutOrStdout(), models.ClassifyResponse{
				Identified: true,
				Breed:      res.BreedLabel,
				Confidence: res.Confidence,
			})
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Classify an image and store the record",
		Long: `Classify a JPEG, PNG or WebP image of at most 5MB and store the record.

Against a local ledger (--dir) only the record is kept. Its image_url names
an in-memory image that is gone once the command exits, so it cannot be
fetched later. Upload through --server to get an image_url the server can
serve while it runs.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readImage(args[0])
			if err != nil {
				return err
			}
			rec, err := c.backend.Upload(cmd.Context(), file, owner)
			if err != nil {
				return userError(err)
			}
			return c.render(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", os.Getenv("DOGIFY_OWNER"), "owner of the record (local ledger only)")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of an owner, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := c.backend.List(cmd.Context(), owner)
			if err != nil {
				return userError(err)
			}
			return c.render(cmd.OutOrStdout(), models.ImagesResponse(recs))
		},
	}
	cmd.Flags().StringVar(&owner, "owner", os.Getenv("DOGIFY_OWNER"), "owner whose records to list (local ledger only)")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Long:  "Delete a record. Locally, without --owner, a record of any owner can be deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.backend.Delete(cmd.Context(), owner, args[0]); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only delete the record if it belongs to this owner")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.backend.Stats(cmd.Context())
			if err != nil {
				return userError(err)
			}
			return c.render(cmd.OutOrStdout(), st)
		},
	}
}

func (c *cli) breedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "breeds",
		Short:       "List the breeds the classifier knows",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.render(cmd.OutOrStdout(), classifier.NewPatternClassifier().Breeds())
		},
	}
}

// userError replaces ledger errors with the message a user should see.
func userError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnrecognizedSubject):
		return errors.New(service.UnrecognizedMessage)
	case errors.Is(err, service.ErrMissingOwner):
		return errors.New("an owner is required, pass --owner")
	case errors.Is(err, service.ErrRecordNotFound):
		return errors.New("no such image")
	}
	return err
}

func readImage(path string) (models.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImageFile{}, err
	}

	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return models.ImageFile{
		Name:        name,
		ContentType: ct,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// render writes v as indented JSON or as YAML with the same field names.
func (c *cli) render(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if c.output == "json" {
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
