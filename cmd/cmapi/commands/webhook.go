package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/internal/relay"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewWebhookCommand creates the webhook command group.
func NewWebhookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Receive event notifications",
		Long:  "Run a webhook receiver for Cloud Manager event notifications",
	}

	cmd.AddCommand(newWebhookServeCommand())

	return cmd
}

type webhookServeOptions struct {
	addr          string
	path          string
	secret        string
	natsURL       string
	subjectPrefix string
}

func newWebhookServeCommand() *cobra.Command {
	var opts webhookServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoint",
		Long: `Answer the registration challenge, verify signed notifications and report them.

With --nats-url every verified notification is published to <subject-prefix>.<kind>,
for example cloudmanager.events.step-waiting; unknown kinds go to <subject-prefix>.unknown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebhookServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", constants.DefaultWebhookAddr, "listen address")
	cmd.Flags().StringVar(&opts.path, "path", constants.DefaultWebhookPath, "webhook path")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "client secret of the integration (defaults to webhook_secret, then client_secret)")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "NATS server to relay events to (defaults to nats_url)")
	cmd.Flags().StringVar(&opts.subjectPrefix, "subject-prefix", "", "NATS subject prefix (defaults to subject_prefix, then "+constants.DefaultSubjectPrefix+")")

	return cmd
}

func runWebhookServe(cmd *cobra.Command, opts webhookServeOptions) error {
	secret := webhookSecret(opts.secret)
	if secret == "" {
		return constants.ErrSecretNotProvided
	}

	logger := newLogger()

	onEvent, onUnknown, closeRelay, err := webhookCallbacks(cmd, opts, logger)
	if err != nil {
		return err
	}
	defer closeRelay()

	handler := cmapi.NewWebhookHandler(secret, onEvent,
		cmapi.WithUnknownEventCallback(onUnknown),
		cmapi.WithWebhookLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(opts.path, handler)

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: constants.WebhookReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- server.ListenAndServe()
	}()

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s%s\n", opts.addr, opts.path)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving webhook: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.WebhookShutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutting down webhook: %w", err)
	}

	return nil
}

// webhookCallbacks relays to NATS when a server is configured, and prints a line per
// notification otherwise.
func webhookCallbacks(cmd *cobra.Command, opts webhookServeOptions, logger cmapi.Logger) (cmapi.EventCallback, cmapi.UnknownEventCallback, func(), error) {
	natsURL := opts.natsURL
	if natsURL == "" {
		natsURL = viper.GetString(KeyNATSURL)
	}

	if natsURL == "" {
		out := cmd.OutOrStdout()

		onEvent := func(_ context.Context, event cmapi.Event, _ []byte) error {
			_, err := fmt.Fprintf(out, "%s\t%s\n", event.Kind(), event.ObjectURL())

			return err
		}

		onUnknown := func(_ context.Context, envelope *cmapi.EventEnvelope) error {
			_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", unknownKind, envelope.EventType, envelope.ObjectType)

			return err
		}

		return onEvent, onUnknown, func() {}, nil
	}

	prefix := opts.subjectPrefix
	if prefix == "" {
		prefix = viper.GetString(KeySubjectPrefix)
	}

	relayOpts := []relay.Option{relay.WithLogger(logger)}
	if prefix != "" {
		relayOpts = append(relayOpts, relay.WithSubjectPrefix(prefix))
	}

	publisher, err := relay.Connect(natsURL, relayOpts...)
	if err != nil {
		return nil, nil, nil, err
	}

	return publisher.Publish, publisher.PublishUnknown, publisher.Close, nil
}
