package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"easyread/capture/api"
	"easyread/capture/extract"
	"easyread/capture/pipeline"
	"easyread/capture/prefs"
	"easyread/capture/render"
)

var serverURL string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "easyread: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "easyread",
		Short: "Capture documents and turn them into Easy Read PDFs",
		Long: `easyread captures text from scans, PDFs, and web pages, optionally rewrites it
into Easy Read style, and saves the result to your document library.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Base URL of the EasyRead service")
	cmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newScanCmd(),
		newPDFCmd(),
		newWebCmd(),
		newListCmd(),
		newOpenCmd(),
		newDeleteCmd(),
		newPrefsCmd(),
	)
	return cmd
}

func defaultServerURL() string {
	if url := os.Getenv("EASYREAD_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "easyread"), nil
}

func sessionPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func prefsPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prefs.json"), nil
}

func artifactDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "artifacts"), nil
}

func newClient() *api.Client {
	return api.NewClient(strings.TrimRight(serverURL, "/") + "/api/v1")
}

func loadSession() (*api.Session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	session, err := api.LoadSession(path)
	if err != nil {
		return nil, err
	}
	if !session.Valid() {
		return nil, api.ErrNotSignedIn
	}
	return session, nil
}

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newClient().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			path, err := sessionPath()
			if err != nil {
				return err
			}
			if err := api.SaveSession(path, session); err != nil {
				return err
			}
			fmt.Printf("Signed in as %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newClient().Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			path, err := sessionPath()
			if err != nil {
				return err
			}
			if err := api.SaveSession(path, session); err != nil {
				return err
			}
			fmt.Printf("Account created for %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath()
			if err != nil {
				return err
			}
			if err := api.DestroySession(path); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

// captureFlags are shared by the scan, pdf, and web commands.
type captureFlags struct {
	title      string
	keepTerms  []string
	noSimplify bool
}

func (f *captureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Title for the saved document")
	cmd.Flags().StringSliceVar(&f.keepTerms, "keep-term", nil, "Term the rewrite must keep verbatim (repeatable)")
	cmd.Flags().BoolVar(&f.noSimplify, "no-simplify", false, "Save the raw text without the Easy Read rewrite")
}

func newScanCmd() *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Capture a photographed document through OCR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runCapture(cmd.Context(), flags, func(client *api.Client, session *api.Session) extract.Extractor {
				return &extract.ScanExtractor{
					Client:    client,
					Session:   session,
					FileName:  filepath.Base(args[0]),
					ImageData: data,
				}
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newPDFCmd() *cobra.Command {
	var flags captureFlags
	var maxMB int
	cmd := &cobra.Command{
		Use:   "pdf <file>",
		Short: "Capture the text of a PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runCapture(cmd.Context(), flags, func(client *api.Client, session *api.Session) extract.Extractor {
				return &extract.PDFExtractor{
					Client:      client,
					Session:     session,
					FileName:    filepath.Base(args[0]),
					Data:        data,
					MaxUploadMB: maxMB,
				}
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxMB, "max-upload-mb", 20, "Upload size ceiling in megabytes")
	return cmd
}

func newWebCmd() *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:   "web <url>",
		Short: "Capture the readable text of a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), flags, func(*api.Client, *api.Session) extract.Extractor {
				return &extract.WebExtractor{URL: args[0]}
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// runCapture drives the whole pipeline for one capture command:
// extract, optionally simplify, then save and leave.
func runCapture(ctx context.Context, flags captureFlags, newExtractor func(*api.Client, *api.Session) extract.Extractor) error {
	session, err := loadSession()
	if err != nil {
		return err
	}
	pp, err := prefsPath()
	if err != nil {
		return err
	}
	p, err := prefs.Load(pp)
	if err != nil {
		return err
	}
	artifacts, err := artifactDir()
	if err != nil {
		return err
	}

	client := newClient()
	svc := &pipeline.ServiceClient{Client: client, Session: session}
	renderer := &render.Renderer{Client: client, Session: session, ArtifactDir: artifacts}
	capture := pipeline.NewSession(svc, svc, renderer, p)

	if err := capture.BeginExtraction(ctx, newExtractor(client, session)); err != nil {
		if errors.Is(err, pipeline.ErrNoContent) {
			return fmt.Errorf("no readable text was found in this source")
		}
		return err
	}
	fmt.Printf("Extracted %d characters\n", len(capture.Extraction().Text))

	if !flags.noSimplify {
		if err := capture.SimplifyText(ctx, flags.keepTerms); err != nil {
			fmt.Fprintf(os.Stderr, "easyread: simplification failed (%v); saving the original text instead\n", err)
		}
	}

	doc, err := capture.SaveAndLeave(ctx, flags.title)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %q (%s)\n", doc.Title, doc.ID)
	if doc.FileURL != "" {
		fmt.Printf("PDF: %s\n", doc.FileURL)
	}
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your saved documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession()
			if err != nil {
				return err
			}
			docs, err := newClient().ListDocuments(cmd.Context(), session)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No documents yet")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tSOURCE\tCREATED")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Title, d.Type, d.SourceTag, d.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <document-id>",
		Short: "Resolve a document to a local PDF, rebuilding it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession()
			if err != nil {
				return err
			}
			client := newClient()
			docs, err := client.ListDocuments(cmd.Context(), session)
			if err != nil {
				return err
			}
			var doc *api.Document
			for i := range docs {
				if docs[i].ID == args[0] {
					doc = &docs[i]
					break
				}
			}
			if doc == nil {
				return fmt.Errorf("no document with id %s", args[0])
			}

			pp, err := prefsPath()
			if err != nil {
				return err
			}
			p, err := prefs.Load(pp)
			if err != nil {
				return err
			}
			artifacts, err := artifactDir()
			if err != nil {
				return err
			}
			renderer := &render.Renderer{Client: client, Session: session, ArtifactDir: artifacts}
			svc := &pipeline.ServiceClient{Client: client, Session: session}
			capture := pipeline.NewSession(svc, svc, renderer, p)

			path, err := capture.Open(cmd.Context(), *doc, p)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document from your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession()
			if err != nil {
				return err
			}
			if err := newClient().DeleteDocument(cmd.Context(), session, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted", args[0])
			return nil
		},
	}
}

func newPrefsCmd() *cobra.Command {
	var fontSize int
	var lineHeight, align string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences for rendered PDFs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := prefsPath()
			if err != nil {
				return err
			}
			p, err := prefs.Load(path)
			if err != nil {
				return err
			}
			changed := false
			if cmd.Flags().Changed("font-size") {
				p.FontSize = fontSize
				changed = true
			}
			if cmd.Flags().Changed("line-height") {
				p.LineHeight = prefs.LineHeight(lineHeight)
				changed = true
			}
			if cmd.Flags().Changed("align") {
				p.TextAlignment = prefs.TextAlignment(align)
				changed = true
			}
			if changed {
				if err := prefs.Save(path, p); err != nil {
					return err
				}
				p = p.Normalized()
			}
			fmt.Printf("font-size: %d\nline-height: %s (%dpx)\nalign: %s\n",
				p.FontSize, p.LineHeight, p.LineHeightPx(), p.TextAlignment)
			return nil
		},
	}
	cmd.Flags().IntVar(&fontSize, "font-size", 16, "Body font size in px (10-40)")
	cmd.Flags().StringVar(&lineHeight, "line-height", "normal", "Line spacing: compact, normal, or spacious")
	cmd.Flags().StringVar(&align, "align", "left", "Text alignment: left, center, or justify")
	return cmd
}
