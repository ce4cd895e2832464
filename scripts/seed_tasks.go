//go:build ignore

// seed_tasks.go parses TODO.md checkboxes and creates them as tasks via the Taskboard API.
//
// Usage:
//
//	go run scripts/seed_tasks.go -todo /path/to/TODO.md -api http://localhost:8700
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type task struct {
	Title          string   `json:"title"`
	DueDate        string   `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Importance     int      `json:"importance"`
	Completed      bool     `json:"completed"`
}

// Priority emoji to importance
var importanceMap = map[string]int{
	"🔴": 10,
	"🟠": 8,
	"🟡": 5,
	"🟢": 3,
}

var (
	dueRe   = regexp.MustCompile(`\(due (\d{4}-\d{2}-\d{2})\)`)
	hoursRe = regexp.MustCompile(`\(~(\d+(?:\.\d+)?)h\)`)
)

func main() {
	todoPath := flag.String("todo", "TODO.md", "path to TODO.md file")
	apiURL := flag.String("api", "http://localhost:8700", "Taskboard API base URL")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	dryRun := flag.Bool("dry-run", false, "print tasks without posting")
	flag.Parse()

	f, err := os.Open(*todoPath)
	if err != nil {
		log.Fatalf("open TODO.md: %v", err)
	}
	defer f.Close()

	var tasks []task
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(trimmed, "- [") {
			continue
		}

		done := strings.HasPrefix(trimmed, "- [x]") || strings.HasPrefix(trimmed, "- [X]")
		text := trimmed
		if done {
			text = strings.TrimPrefix(text, "- [x] ")
			text = strings.TrimPrefix(text, "- [X] ")
		} else {
			text = strings.TrimPrefix(text, "- [ ] ")
		}

		t := task{Importance: 5, Completed: done}
		for emoji, imp := range importanceMap {
			if strings.Contains(text, emoji) {
				t.Importance = imp
				text = strings.ReplaceAll(text, emoji, "")
				break
			}
		}
		if m := dueRe.FindStringSubmatch(text); m != nil {
			t.DueDate = m[1]
			text = strings.Replace(text, m[0], "", 1)
		}
		if m := hoursRe.FindStringSubmatch(text); m != nil {
			if h, err := strconv.ParseFloat(m[1], 64); err == nil && h > 0 {
				t.EstimatedHours = &h
			}
			text = strings.Replace(text, m[0], "", 1)
		}
		t.Title = strings.Join(strings.Fields(text), " ")
		if t.Title == "" {
			continue
		}
		tasks = append(tasks, t)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("scan TODO.md: %v", err)
	}

	log.Printf("parsed %d tasks from %s", len(tasks), *todoPath)

	if *dryRun {
		for i, t := range tasks {
			hours := "none"
			if t.EstimatedHours != nil {
				hours = strconv.FormatFloat(*t.EstimatedHours, 'f', -1, 64)
			}
			due := t.DueDate
			if due == "" {
				due = "none"
			}
			fmt.Printf("[%d] %s (importance=%d, due=%s, hours=%s, done=%t)\n", i+1, t.Title, t.Importance, due, hours, t.Completed)
		}
		return
	}

	client := &http.Client{}
	created, skipped := 0, 0
	for _, t := range tasks {
		body, _ := json.Marshal(t)
		req, err := http.NewRequest("POST", *apiURL+"/api/v1/tasks", bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %q: %v", t.Title, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Client-ID", *clientID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %q: %v", t.Title, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			created++
		} else {
			log.Printf("skip %q: status %d", t.Title, resp.StatusCode)
			skipped++
		}
	}

	log.Printf("done: %d created, %d skipped", created, skipped)
}
