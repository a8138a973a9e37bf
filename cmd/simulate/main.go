package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"storefront-payments/internal/config"
	"storefront-payments/internal/database"
	"storefront-payments/internal/domain"
	"storefront-payments/internal/repo"
	"storefront-payments/internal/service"
	"storefront-payments/internal/webhook"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	orders  int
	target  string
	secret  string
	migrate bool
	delay   time.Duration
}

func main() {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Seed orders and replay signed payment webhooks against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	rootCmd.Flags().IntVarP(&opts.orders, "orders", "n", 20, "number of orders to create")
	rootCmd.Flags().StringVarP(&opts.target, "target", "t", "http://localhost:8080/webhooks/paymongo", "webhook endpoint")
	rootCmd.Flags().StringVar(&opts.secret, "secret", os.Getenv("PAYMONGO_WEBHOOK_SECRET"), "webhook signing secret")
	rootCmd.Flags().BoolVar(&opts.migrate, "migrate", false, "create the schema before seeding")
	rootCmd.Flags().DurationVar(&opts.delay, "delay", 100*time.Millisecond, "pause between orders")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type delivery struct {
	eventType  domain.EventType
	correlated bool
}

// scenario picks the deliveries one order receives.
func scenario() []delivery {
	chance := rand.Intn(100)
	switch {
	case chance < 60:
		return []delivery{{domain.EventPaymentPaid, true}}
	case chance < 75:
		return []delivery{{domain.EventPaymentFailed, true}, {domain.EventPaymentPaid, true}}
	case chance < 85:
		// duplicate delivery from a gateway retry
		return []delivery{{domain.EventPaymentPaid, true}, {domain.EventPaymentPaid, true}}
	case chance < 90:
		// late pending after paid must not downgrade
		return []delivery{{domain.EventPaymentPaid, true}, {domain.EventPaymentPending, true}}
	case chance < 95:
		return []delivery{{domain.EventPaymentPending, true}}
	default:
		return []delivery{{domain.EventPaymentPaid, false}}
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	orderRepo := repo.NewOrderRepo(db)
	orderService := service.NewOrderService(db, orderRepo)
	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Fprintf(out, "--- STARTING SIMULATION (%d ORDERS) ---\n", opts.orders)
	for i := 0; i < opts.orders; i++ {
		order, err := orderService.CreateOrder(ctx, float64(rand.Intn(5)*50))
		if err != nil {
			fmt.Fprintf(out, "Create Failed: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "[%d] Order %s\n", i+1, order.OrderNumber)
		for _, d := range scenario() {
			body, err := eventBody(order.ID, d)
			if err != nil {
				return err
			}
			status, err := deliver(ctx, client, opts.target, opts.secret, body)
			if err != nil {
				fmt.Fprintf(out, "    %s -> FAILED: %v\n", d.eventType, err)
				continue
			}
			fmt.Fprintf(out, "    %s (correlated=%v) -> HTTP %d\n", d.eventType, d.correlated, status)
		}

		fresh, err := orderService.GetOrder(ctx, order.ID)
		if err != nil {
			fmt.Fprintf(out, "    -> DB read failed: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "    -> DB payment_status=%s payment_reference=%s\n", deref(fresh.PaymentStatus), deref(fresh.PaymentReference))
		fmt.Fprintln(out, "---------------------------------------------------")
		time.Sleep(opts.delay)
	}
	return nil
}

func eventBody(orderID uuid.UUID, d delivery) ([]byte, error) {
	metadata := map[string]any{}
	if d.correlated {
		metadata["order_id"] = orderID.String()
	}
	event := map[string]any{
		"data": map[string]any{
			"id":   "evt_" + uuid.NewString()[:12],
			"type": "event",
			"attributes": map[string]any{
				"type":       string(d.eventType),
				"livemode":   false,
				"created_at": time.Now().Unix(),
				"data": map[string]any{
					"id":   "pay_" + uuid.NewString()[:12],
					"type": "payment",
					"attributes": map[string]any{
						"status":            string(d.eventType)[len("payment."):],
						"payment_intent_id": "pi_" + orderID.String()[:12],
						"metadata":          metadata,
					},
				},
			},
		},
	}
	return json.Marshal(event)
}

func deliver(ctx context.Context, client *http.Client, target, secret string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Paymongo-Signature", webhook.Sign(secret, time.Now().Unix(), body))
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func deref[T ~string](v *T) string {
	if v == nil {
		return "<nil>"
	}
	return string(*v)
}
