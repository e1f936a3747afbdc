// Command client is a terminal client for the Blox Studios chat server.
//
// Log in through the HTTP API first to obtain a session token, then:
//
//	client -addr localhost:9700 -token <session-token>
//
// Type "@username some text" to send a direct message, "/users" to list
// who is online, "/quit" to exit.
package main

import (
	"bufio"
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/logging"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/protocol"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/version"
)

func main() {
	addr := flag.String("addr", "localhost:9700", "Server chat plane address")
	token := flag.String("token", "", "Session token from /api/login")
	useTLS := flag.Bool("tls", false, "Connect over TLS")
	insecure := flag.Bool("insecure", true, "Skip TLS certificate verification (self-signed servers)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bloxstudios-client " + version.Full())
		return
	}

	// Default to "info"; override with BLOX_LOG_LEVEL env var (debug, info, warn, error).
	level := "info"
	if v := os.Getenv("BLOX_LOG_LEVEL"); v != "" {
		level = v
	}
	_ = logging.Setup(logging.Options{Level: level, Format: "text", Output: os.Stderr})

	if *token == "" {
		color.Red.Println("a session token is required (-token); log in via POST /api/login first")
		os.Exit(1)
	}

	conn, err := dial(*addr, *useTLS, *insecure)
	if err != nil {
		color.Red.Printf("connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := protocol.WriteEvent(conn, &protocol.Event{
		AuthRequest: &protocol.AuthRequest{SessionToken: *token},
	}); err != nil {
		color.Red.Printf("handshake failed: %v\n", err)
		os.Exit(1)
	}

	c := &client{conn: conn, self: "?"}
	go c.readLoop()
	c.inputLoop()
}

func dial(addr string, useTLS, insecure bool) (net.Conn, error) {
	if !useTLS {
		return net.Dial("tcp", addr)
	}
	return tls.Dial("tcp", addr, &tls.Config{
		InsecureSkipVerify: insecure, //nolint:gosec // self-signed server certs
		MinVersion:         tls.VersionTLS13,
	})
}

type client struct {
	conn net.Conn
	self string

	mu     sync.Mutex
	online []string
}

// readLoop renders every inbound event until the connection drops.
func (c *client) readLoop() {
	for {
		evt, err := protocol.ReadEvent(c.conn)
		if err != nil {
			color.Yellow.Println("\ndisconnected from server")
			os.Exit(0)
		}

		switch {
		case evt.AuthResponse != nil:
			c.self = evt.AuthResponse.Username
			color.Green.Printf("logged in as %s (%s)\n", evt.AuthResponse.Username, evt.AuthResponse.Role)
			if evt.AuthResponse.Warned {
				color.Yellow.Println("you have received a warning from the moderators")
			}
		case evt.HistoryReplay != nil:
			if len(evt.HistoryReplay.Messages) > 0 {
				color.Gray.Printf("--- last %d messages ---\n", len(evt.HistoryReplay.Messages))
				for _, m := range evt.HistoryReplay.Messages {
					color.Gray.Printf("[%s] %s -> %s: %s\n",
						m.Timestamp.Local().Format("15:04:05"), m.From, m.To, m.Text)
				}
				color.Gray.Println("---")
			}
		case evt.PresenceSnapshot != nil:
			c.mu.Lock()
			c.online = evt.PresenceSnapshot.Usernames
			c.mu.Unlock()
		case evt.MessageDelivered != nil:
			m := evt.MessageDelivered.Message
			if m.From == c.self {
				color.Cyan.Printf("[%s] you -> %s: %s\n",
					m.Timestamp.Local().Format("15:04:05"), m.To, m.Text)
			} else {
				color.Cyan.Printf("[%s] %s: %s\n",
					m.Timestamp.Local().Format("15:04:05"), m.From, m.Text)
			}
		case evt.ErrorResponse != nil:
			color.Red.Printf("server error %d: %s\n", evt.ErrorResponse.Code, evt.ErrorResponse.Message)
			os.Exit(1)
		case evt.Pong != nil:
			// keepalive reply, nothing to show
		}
	}
}

// inputLoop reads commands from stdin until EOF or /quit.
func (c *client) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit", line == "/exit":
			return
		case line == "/users":
			c.printOnline()
		case strings.HasPrefix(line, "@"):
			c.send(line)
		default:
			color.Yellow.Println(`messages are direct: use "@username some text"`)
		}
	}
}

func (c *client) send(line string) {
	to, text, ok := strings.Cut(strings.TrimPrefix(line, "@"), " ")
	if !ok || strings.TrimSpace(text) == "" {
		color.Yellow.Println(`usage: "@username some text"`)
		return
	}

	err := protocol.WriteEvent(c.conn, &protocol.Event{
		SendMessage: &protocol.SendMessage{To: to, Text: strings.TrimSpace(text)},
	})
	if err != nil {
		color.Red.Printf("send failed: %v\n", err)
	}
}

func (c *client) printOnline() {
	c.mu.Lock()
	online := make([]string, len(c.online))
	copy(online, c.online)
	c.mu.Unlock()

	// Collapse per-connection entries into username + connection count.
	counts := make(map[string]int)
	var order []string
	for _, u := range online {
		if counts[u] == 0 {
			order = append(order, u)
		}
		counts[u]++
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Connections"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, u := range order {
		name := u
		if u == c.self {
			name = u + " (you)"
		}
		table.Append([]string{name, fmt.Sprintf("%d", counts[u])})
	}
	table.Render()
}
