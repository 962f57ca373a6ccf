package main

import (
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/capsulehq/keepsake/internal/client"
	"github.com/capsulehq/keepsake/internal/ledger"
	"github.com/capsulehq/keepsake/internal/server/service"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

const ledgerfile = ".kpsk.db"

var (
	endpoint string

	title   string
	message string
	story   string
	gallery []string
	avatar  string
	cover   string
	secret  string
)

func main() {
	c := &coral.Command{
		Use:   "kpsk",
		Short: "Keepsake device client",
		Args:  coral.ExactArgs(0),
	}
	c.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", defaultEndpoint(), "Keepsake server endpoint")

	createCmd.Flags().StringVarP(&title, "title", "t", "", "Title of the memory (required)")
	createCmd.Flags().StringVarP(&message, "message", "m", "", "Short message")
	createCmd.Flags().StringVarP(&story, "story", "s", "", "Long story")
	createCmd.Flags().StringSliceVar(&gallery, "gallery", nil, "Gallery image locations (up to 5)")
	createCmd.Flags().StringVar(&avatar, "avatar", "", "Avatar image location")
	createCmd.Flags().StringVar(&cover, "cover", "", "Cover image location")
	c.AddCommand(createCmd)

	c.AddCommand(getCmd)
	c.AddCommand(lsCmd)

	editCmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&message, "message", "m", "", "New short message")
	editCmd.Flags().StringVarP(&story, "story", "s", "", "New story")
	editCmd.Flags().StringVar(&secret, "secret", "", "Secret key (defaults to the ledger's)")
	c.AddCommand(editCmd)

	rmCmd.Flags().StringVar(&secret, "secret", "", "Secret key (defaults to the ledger's)")
	c.AddCommand(rmCmd)

	c.AddCommand(grantCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func defaultEndpoint() string {
	if endpoint := os.Getenv("KPSK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:5000"
}

func openLedger() (*ledger.Ledger, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "could not locate home directory")
	}
	return ledger.Open(filepath.Join(home, ledgerfile))
}

var (
	createCmd = &coral.Command{
		Use:   "create",
		Short: "Create a memory and record its ownership in the device ledger",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			created, err := client.New(endpoint).Create(service.CreateParams{
				Title:         title,
				ShortMessage:  message,
				Story:         story,
				GalleryImages: gallery,
				AvatarImage:   avatar,
				CoverImage:    cover,
			})
			if err != nil {
				return err
			}

			if err := l.RecordOwned(created.Code, created.SecretKey, title); err != nil {
				// The memory exists but the device would lose its credential.
				fmt.Printf("WARNING: could not record secret key, keep it safe: %s\n", created.SecretKey)
				return err
			}

			fmt.Printf("Created memory %s\n", created.Code)
			return nil
		},
	}

	//
	//
	getCmd = &coral.Command{
		Use:   "get CODE",
		Short: "Fetch a memory and record the visit",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			memory, err := client.New(endpoint).Get(args[0])
			if err != nil {
				return err
			}

			if err := l.RecordVisited(memory.Code, memory.Title); err != nil {
				return err
			}

			fmt.Printf("%s  %s (created %s)\n", memory.Code, memory.Title, memory.CreatedAt.Format("2006-01-02"))
			if memory.ShortMessage != "" {
				fmt.Println(memory.ShortMessage)
			}
			if memory.Story != "" {
				fmt.Println()
				fmt.Println(memory.Story)
			}
			for _, location := range memory.GalleryImages {
				fmt.Printf("  image: %s\n", location)
			}
			return nil
		},
	}

	//
	//
	lsCmd = &coral.Command{
		Use:   "ls",
		Short: "List the memories known to this device",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			entries, err := l.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No memories known yet.")
				return nil
			}

			codes := make([]string, 0, len(entries))
			owned := map[string]bool{}
			for _, entry := range entries {
				codes = append(codes, entry.Code)
				owned[entry.Code] = entry.Owned
			}

			summaries, err := client.New(endpoint).Summaries(codes)
			if err != nil {
				return err
			}

			alive := map[string]service.Summary{}
			for _, summary := range summaries {
				alive[summary.Code] = summary
			}
			for _, code := range codes {
				summary, ok := alive[code]
				if !ok {
					fmt.Printf("%s  (gone)\n", code)
					continue
				}
				marker := " "
				if owned[code] {
					marker = "*"
				}
				fmt.Printf("%s %s  %s (created %s)\n", marker, summary.Code, summary.Title, summary.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}

	//
	//
	editCmd = &coral.Command{
		Use:   "edit CODE",
		Short: "Edit a memory this device owns",
		Args:  coral.ExactArgs(1),
		RunE: func(c *coral.Command, args []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			code := args[0]
			if secret == "" {
				secret, err = l.Secret(code)
				if err != nil {
					return err
				}
				if secret == "" {
					return errors.New("this device does not own the memory; pass --secret")
				}
			}

			// Only flags the user actually set are sent; everything else keeps
			// its stored value on the server.
			var params service.UpdateParams
			if c.Flags().Changed("title") {
				params.Title = &title
			}
			if c.Flags().Changed("message") {
				params.ShortMessage = &message
			}
			if c.Flags().Changed("story") {
				params.Story = &story
			}

			memory, err := client.New(endpoint).Update(code, secret, params)
			if err != nil {
				return err
			}
			if err := l.RecordVisited(memory.Code, memory.Title); err != nil {
				return err
			}

			fmt.Printf("Updated memory %s\n", memory.Code)
			return nil
		},
	}

	//
	//
	rmCmd = &coral.Command{
		Use:   "rm CODE",
		Short: "Delete a memory and forget it",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			code := args[0]
			if secret == "" {
				secret, err = l.Secret(code)
				if err != nil {
					return err
				}
				if secret == "" {
					return errors.New("this device does not own the memory; pass --secret")
				}
			}

			if err := client.New(endpoint).Delete(code, secret); err != nil {
				return err
			}
			if err := l.Forget(code); err != nil {
				return err
			}

			fmt.Printf("Deleted memory %s\n", code)
			return nil
		},
	}

	//
	//
	grantCmd = &coral.Command{
		Use:   "grant FILE",
		Short: "Request a direct-upload grant for a file",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			filename := filepath.Base(args[0])
			contentType := mime.TypeByExtension(filepath.Ext(filename))
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			grant, err := client.New(endpoint).Grant(filename, contentType)
			if err != nil {
				return err
			}

			fmt.Printf("PUT your file (%s) to:\n  %s\n", contentType, grant.UploadURL)
			fmt.Printf("It will be served from:\n  %s\n", grant.Location)
			fmt.Printf("The grant expires at %s.\n", grant.ExpiresAt.Format("15:04:05 MST"))
			return nil
		},
	}
)
