package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// chatcli is a small terminal client for the chat API. It authenticates,
// sends messages, and renders the server's event stream as it arrives.

type streamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	token := flag.String("token", "", "bearer token (skips login)")
	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "login password")
	conversation := flag.String("conversation", "", "continue an existing conversation")
	flag.Parse()

	c := &client{baseURL: strings.TrimRight(*baseURL, "/"), http: &http.Client{}}

	switch {
	case *token != "":
		c.token = *token
	case *email != "" && *password != "":
		if err := c.login(*email, *password); err != nil {
			fmt.Fprintln(os.Stderr, "login failed:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "provide -token or -email/-password")
		os.Exit(1)
	}

	conversationID := *conversation

	if msg := strings.Join(flag.Args(), " "); msg != "" {
		if _, err := c.send(msg, conversationID); err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
			os.Exit(1)
		}
		return
	}

	// Interactive mode: one conversation per session
	fmt.Fprintln(os.Stderr, "type a message and press enter, ctrl-d to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, err := c.send(line, conversationID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
			continue
		}
		if id != "" {
			conversationID = id
		}
	}
}

func (c *client) login(email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	resp, err := c.http.Post(c.baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", payload.Error)
	}

	c.token = payload.Token
	return nil
}

// send posts one message and streams the reply to stdout. Returns the
// conversation id announced on the stream so follow-ups stay in the same
// thread.
func (c *client) send(message, conversationID string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"message":        message,
		"conversationId": conversationID,
	})

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/chat/send", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&payload)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}

	returnedID := conversationID

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "conversationId":
			json.Unmarshal(event.Data, &returnedID)
		case "stream":
			var fragment string
			if err := json.Unmarshal(event.Data, &fragment); err == nil {
				fmt.Print(fragment)
			}
		case "complete":
			fmt.Println()
		case "error":
			var reason string
			json.Unmarshal(event.Data, &reason)
			fmt.Println()
			return returnedID, fmt.Errorf("%s", reason)
		}
	}
	if err := scanner.Err(); err != nil {
		return returnedID, err
	}

	return returnedID, nil
}
