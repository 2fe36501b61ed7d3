package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"spider-league/models"

	"github.com/gofiber/fiber/v2"
)

// StreamBattleSSE streams a battle's turn log as it grows, then the final
// battle state. Spectators may connect at any point; earlier turns are replayed.
func (s *BattleService) StreamBattleSSE(pollInterval time.Duration) fiber.Handler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return func(c *fiber.Ctx) error {
		battleID := c.Params("id")
		battle, err := s.GetBattle(c.UserContext(), battleID, false)
		if err != nil {
			if errors.Is(err, ErrBattleNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "battle not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load battle"})
		}

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		reqCtx := c.Context()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()

			cursor := 0
			ctx := context.Background()

			writeEvent(w, "battle", battle)
			if err := w.Flush(); err != nil {
				return
			}

			for {
				done, err := s.streamStep(ctx, w, battleID, &cursor)
				if err != nil {
					log.Printf("SSE query error for battle %s: %v", battleID, err)
				}
				// Flush error means the client disconnected
				if err := w.Flush(); err != nil || done {
					return
				}

				select {
				case <-ticker.C:
				case <-reqCtx.Done():
					return
				}
			}
		})
		return nil
	}
}

// streamStep writes turns after cursor and, once the battle is terminal,
// the final battle event. Returns true when the stream is complete.
func (s *BattleService) streamStep(ctx context.Context, w *bufio.Writer, battleID string, cursor *int) (bool, error) {
	turns, err := s.ListTurns(ctx, battleID, *cursor)
	if err != nil {
		return false, err
	}
	for _, t := range turns {
		writeEvent(w, "turn", t)
		*cursor = t.TurnIndex
	}

	battle, err := s.GetBattle(ctx, battleID, false)
	if err != nil {
		return false, err
	}
	if !battle.IsTerminal() {
		// keepalive comment
		w.WriteString(":\n\n")
		return false, nil
	}

	// the final turns may have landed between the two queries
	late, err := s.ListTurns(ctx, battleID, *cursor)
	if err != nil {
		return false, err
	}
	for _, t := range late {
		writeEvent(w, "turn", t)
		*cursor = t.TurnIndex
	}
	writeEvent(w, eventForStatus(battle.Status), battle)
	return true, nil
}

func eventForStatus(status models.BattleStatus) string {
	if status == models.BattleStatusFailed {
		return "failed"
	}
	return "finished"
}

func writeEvent(w *bufio.Writer, event string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("SSE marshal error (%s): %v", event, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
