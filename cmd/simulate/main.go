// Command simulate drives concurrent checkouts against a running server over
// gRPC and checks that retried PlaceOrder calls place exactly one order each.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/plug-checkout/internal/adapter/handler"
)

func main() {
	fs := pflag.NewFlagSet("simulate", pflag.ExitOnError)
	addr := fs.String("addr", "localhost:50051", "gRPC address of the checkout server")
	sessions := fs.Int("sessions", 20, "concurrent checkout sessions")
	retries := fs.Int("retries", 5, "concurrent PlaceOrder calls per session, all with the same request id")
	timeout := fs.Duration("timeout", time.Minute, "overall deadline")
	fs.Parse(os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	client := handler.NewCheckoutClient(conn)

	var (
		placed     atomic.Int32
		duplicates atomic.Int32
		conflicts  atomic.Int32
		failed     atomic.Int32
	)

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			id, err := walkToPayment(ctx, client, n)
			if err != nil {
				log.Printf("session %d: %v", n, err)
				failed.Add(1)
				return
			}

			requestID := uuid.NewString()
			var inner sync.WaitGroup
			for r := 0; r < *retries; r++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					_, err := client.PlaceOrder(ctx, id, requestID)
					switch status.Code(err) {
					case codes.OK:
						placed.Add(1)
					case codes.AlreadyExists:
						duplicates.Add(1)
					case codes.Aborted, codes.FailedPrecondition:
						conflicts.Add(1)
					default:
						log.Printf("session %d: place order: %v", n, err)
						failed.Add(1)
					}
				}()
			}
			inner.Wait()
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== CHECKOUT SIMULATION ==========")
	fmt.Printf("Sessions:         %d\n", *sessions)
	fmt.Printf("Calls/session:    %d\n", *retries)
	fmt.Printf("Placed:           %d\n", placed.Load())
	fmt.Printf("Duplicates:       %d\n", duplicates.Load())
	fmt.Printf("Conflicts:        %d\n", conflicts.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if placed.Load() == int32(*sessions) && failed.Load() == 0 {
		fmt.Printf("PASS: exactly one order per session\n")
	} else {
		fmt.Printf("FAIL: expected %d orders, got %d (%d failures)\n", *sessions, placed.Load(), failed.Load())
		os.Exit(1)
	}
}

func walkToPayment(ctx context.Context, client *handler.CheckoutClient, n int) (string, error) {
	sess, err := client.OpenSession(ctx)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	id := sess.ID

	line := handler.AddLineRequest{
		Item: handler.MenuItemRequest{
			ID:           fmt.Sprintf("item_%d", n%5),
			Name:         fmt.Sprintf("Menu item %d", n%5),
			BasePrice:    decimal.New(int64(599+n*100), -2),
			RestaurantID: "rest_sim",
		},
		Quantity: 1 + n%3,
	}
	if _, err := client.AddLine(ctx, id, line); err != nil {
		return "", fmt.Errorf("add line: %w", err)
	}
	if _, err := client.Checkout(ctx, id); err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}
	if _, err := client.SubmitDelivery(ctx, id, handler.DeliveryRequest{
		Address:       fmt.Sprintf("%d Market St", 100+n),
		Phone:         "4155550100",
		RequestedTime: "ASAP",
	}); err != nil {
		return "", fmt.Errorf("submit delivery: %w", err)
	}
	if _, err := client.ContinueReview(ctx, id); err != nil {
		return "", fmt.Errorf("continue review: %w", err)
	}
	if _, err := client.SelectMethod(ctx, id, "pm_1"); err != nil {
		return "", fmt.Errorf("select method: %w", err)
	}
	return id, nil
}
