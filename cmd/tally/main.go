// Command tally is a terminal client for a chiptally server: it creates or
// joins a room, connects to the room's websocket, keeps a local mirror of the
// shared ledger, and submits bets and takes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/chiptally/chiptally/internal/mirror"
	"github.com/chiptally/chiptally/internal/models"
)

// frame is the union of every message shape the server sends.
type frame struct {
	Type    string        `json:"type"`
	Actor   models.User   `json:"actor"`
	Amount  int           `json:"amount"`
	Ts      int64         `json:"ts"`
	Pot     int           `json:"pot"`
	Chips   int           `json:"chips"`
	Room    models.Room   `json:"room"`
	Users   []models.User `json:"users"`
	You     string        `json:"you"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}

type joinReply struct {
	RoomCode string    `json:"roomCode"`
	UserID   uuid.UUID `json:"userId"`
	BuyIn    int       `json:"buyIn"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	name := flag.String("name", "", "your display name")
	room := flag.String("room", "", "room code to join; empty creates a new room")
	buyIn := flag.Int("buyin", 100, "buy-in when creating a room")
	flag.Parse()

	if *name == "" {
		entered, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your name").Show()
		*name = strings.TrimSpace(entered)
	}

	reply, cookie, err := enter(*addr, *name, *room, *buyIn)
	if err != nil {
		pterm.Error.Printfln("could not enter room: %v", err)
		return
	}
	pterm.Success.Printfln("connected as %s in room %s (buy-in %d)", *name, reply.RoomCode, reply.BuyIn)

	ctx := context.Background()
	wsURL := strings.Replace(*addr, "http", "ws", 1) + "/room/ws/" + reply.RoomCode
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{"chips"},
		HTTPHeader:   http.Header{"Cookie": []string{cookie}},
	})
	if err != nil {
		pterm.Error.Printfln("websocket dial: %v", err)
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "bye")

	var (
		mu sync.Mutex
		m  *mirror.Mirror
	)

	ready := make(chan struct{})
	go func() {
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				pterm.Error.Printfln("connection closed: %v", err)
				return
			}
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}

			mu.Lock()
			if m == nil && f.Type != "snapshot" {
				mu.Unlock()
				continue
			}
			switch f.Type {
			case "snapshot":
				self, _ := uuid.Parse(f.You)
				m = mirror.New(self, models.Snapshot{Room: f.Room, Users: f.Users})
				close(ready)
			case "bet_ok":
				m.ApplyLocal(models.EventChipsBet, m.Chips()-f.Chips, f.Pot, f.Chips)
				pterm.Success.Printfln("bet placed: pot %d, you have %d", f.Pot, f.Chips)
			case "take_ok":
				m.ApplyLocal(models.EventChipsTaken, f.Chips-m.Chips(), f.Pot, f.Chips)
				pterm.Success.Printfln("chips taken: pot %d, you have %d", f.Pot, f.Chips)
			case "error":
				pterm.Error.Println(f.Message)
			default:
				ev := models.Event{Kind: models.EventKind(f.Type), Actor: f.Actor, Amount: f.Amount, Ts: f.Ts}
				before := len(m.Feed)
				m.Apply(ev)
				for _, entry := range m.Feed[before:] {
					pterm.Info.Printfln("%s  (pot %d)", entry.Message, m.Pot)
				}
			}
			mu.Unlock()
		}
	}()

	<-ready
	mu.Lock()
	pterm.Info.Printfln("pot %d, you have %d chips", m.Pot, m.Chips())
	mu.Unlock()

	for {
		line, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("bet N | take N | status | quit").Show()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit":
			return
		case "status":
			mu.Lock()
			pterm.Info.Printfln("pot %d, you have %d chips", m.Pot, m.Chips())
			for _, u := range m.Roster {
				pterm.Info.Printfln("  %s: %d chips", u.Name, u.Chips)
			}
			mu.Unlock()
		case "bet", "take":
			if len(fields) != 2 {
				pterm.Error.Println("usage: bet N | take N")
				continue
			}
			amount, err := strconv.Atoi(fields[1])
			if err != nil {
				pterm.Error.Println("amount must be a whole number")
				continue
			}
			if err := send(ctx, c, fields[0], amount); err != nil {
				pterm.Error.Printfln("send failed: %v", err)
				return
			}
		default:
			pterm.Error.Printfln("unknown command %q", fields[0])
		}
	}
}

// enter creates or joins a room over HTTP and returns the reply plus the
// session cookie the websocket needs.
func enter(addr, name, roomCode string, buyIn int) (joinReply, string, error) {
	var (
		url  string
		body map[string]interface{}
	)
	if roomCode == "" {
		url = addr + "/room/create"
		body = map[string]interface{}{"userName": name, "buyIn": buyIn}
	} else {
		url = addr + "/room/join"
		body = map[string]interface{}{"userName": name, "roomCode": roomCode}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return joinReply{}, "", err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return joinReply{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return joinReply{}, "", fmt.Errorf("server said %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var reply joinReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return joinReply{}, "", err
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == "auth_token" {
			return reply, ck.Name + "=" + ck.Value, nil
		}
	}
	return joinReply{}, "", fmt.Errorf("server did not issue a session cookie")
}

func send(ctx context.Context, c *websocket.Conn, kind string, amount int) error {
	data, err := json.Marshal(map[string]interface{}{"type": kind, "amount": amount})
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}
