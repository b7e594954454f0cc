package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/iamasit07/connect4-server/internal/client"
	"github.com/iamasit07/connect4-server/internal/config"
	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/transport/websocket"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", config.GetEnv("SERVER_ADDR", "localhost:8189"), "server TCP address")
	wsURL := flag.String("ws", "", "connect over WebSocket instead, e.g. ws://localhost:8080/ws")
	modeFlag := flag.String("mode", "computer", "game mode when playing as X: computer or player")
	flag.Parse()

	logger := logging.New(os.Stderr, config.GetEnv("LOG_LEVEL", "warn"), true)

	mode, err := protocol.ParseMode(*modeFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conn protocol.Transport
	if *wsURL != "" {
		conn, err = websocket.Dial(ctx, *wsURL)
	} else {
		var d net.Dialer
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, err = d.DialContext(dialCtx, "tcp", *addr)
		cancel()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect")
	}

	handler := client.NewHandler(conn, mode, protocol.WithWriteTimeout(10*time.Second))
	notices := make(chan string, 8)
	go readColumns(ctx, handler, os.Stdin, notices)

	result := make(chan error, 1)
	go func() { result <- handler.Run(ctx) }()

	// all terminal output is written here
	events := handler.Events()
	for events != nil {
		select {
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			render(os.Stdout, handler, e)
		case msg := <-notices:
			fmt.Fprintln(os.Stdout, msg)
		}
	}
	if err := <-result; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("connection lost")
		os.Exit(1)
	}
}

// readColumns forwards typed column numbers to the handler. Feedback for
// bad input goes to notices so only the render loop writes to the terminal.
func readColumns(ctx context.Context, h *client.Handler, in io.Reader, notices chan<- string) {
	notify := func(msg string) {
		select {
		case notices <- msg:
		default:
		}
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		column, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			notify("enter a column number from 1 to 7")
			continue
		}
		if err := h.SubmitMove(ctx, column); err != nil {
			if errors.Is(err, client.ErrNotYourTurn) {
				notify("wait for your turn")
				continue
			}
			return
		}
	}
}

func render(w io.Writer, h *client.Handler, e client.Event) {
	switch e.Kind {
	case client.IdentityAssigned:
		fmt.Fprintf(w, "You are %c\n", e.Token.Symbol())
		if e.Token == domain.TokenA {
			fmt.Fprintln(w, "Waiting for the game to start...")
		}
	case client.GameStarted:
		fmt.Fprintln(w, "Game started")
		printBoard(w, h.Board())
	case client.TurnStarted:
		fmt.Fprint(w, "Your move (1-7): ")
	case client.MoveRejected:
		fmt.Fprintf(w, "Column %d is not playable, try again: ", e.Column)
	case client.BoardUpdated:
		fmt.Fprintf(w, "%c played column %d\n", e.Token.Symbol(), e.Col+1)
		printBoard(w, h.Board())
	case client.Finished:
		fmt.Fprintln(w, outcomeText(e.Status, h.Token()))
	}
}

func outcomeText(status protocol.Status, me domain.Token) string {
	switch status {
	case protocol.StatusTie:
		return "Tie game"
	case protocol.StatusPeerDisconnected:
		return "Your opponent disconnected"
	}
	if status.Winner() == me {
		return "You win!"
	}
	return "You lose"
}

func printBoard(w io.Writer, b *domain.Board) {
	var sb strings.Builder
	grid := b.Grid()
	for row := 0; row < domain.Rows; row++ {
		sb.WriteByte('|')
		for col := 0; col < domain.Columns; col++ {
			sb.WriteRune(grid[row][col].Symbol())
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(" 1 2 3 4 5 6 7\n")
	fmt.Fprint(w, sb.String())
}
