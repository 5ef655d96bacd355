// Guide monitor - prints live guidance commands from a running sight guide.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-sightguide/internal/log"
	"github.com/teslashibe/go-sightguide/pkg/pipeline"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Sight guide dashboard address")
	all := flag.Bool("all", false, "Print every frame, not only spoken commands")
	flag.Parse()

	log.Init("info")
	logger := log.Component("monitor")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	for ctx.Err() == nil {
		if err := watch(ctx, logger, u.String(), *all); err != nil && ctx.Err() == nil {
			logger.Warn("connection lost, retrying", "url", u.String(), "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func watch(ctx context.Context, logger *slog.Logger, endpoint string, all bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	logger.Info("connected", "url", endpoint)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var u pipeline.Update
		if err := json.Unmarshal(data, &u); err != nil {
			logger.Warn("bad status message", "error", err)
			continue
		}
		if !all && !u.Spoken {
			continue
		}
		printUpdate(u)
	}
}

func printUpdate(u pipeline.Update) {
	marker := " "
	if u.Spoken {
		marker = "🔊"
	}
	nearest := "-"
	if len(u.Tracks) > 0 {
		t := u.Tracks[0]
		nearest = fmt.Sprintf("%s #%d %.1fm %s", t.Label, t.ID, t.Depth, t.Zone)
	}
	fmt.Fprintf(os.Stdout, "%s %s %-28s fps=%4.1f mode=%s nearest=%s\n",
		u.At.Format("15:04:05.000"), marker, u.Command, u.FPS, u.Mode, nearest)
}
