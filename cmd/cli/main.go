package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/uptimeengine/internal/notify"
	"github.com/hamed0406/uptimeengine/internal/statuspage"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(api, "/")+"/api/status", nil)
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		os.Exit(1)
	}
	// API_AUTH=user:pass when the page is password protected
	if user, pass, ok := strings.Cut(os.Getenv("API_AUTH"), ":"); ok {
		req.SetBasicAuth(user, pass)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Println("API returned status:", resp.Status)
		os.Exit(1)
	}

	var page statuspage.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		fmt.Println("Could not decode status:", err)
		os.Exit(1)
	}

	fmt.Println(page.Title)
	for _, w := range page.Maintenance.Active {
		fmt.Printf("🔧 %s: %s\n", w.Title, w.Body)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, g := range page.Groups {
		if g.Name != "" {
			fmt.Fprintf(tw, "\n%s\n", g.Name)
		}
		for _, m := range g.Monitors {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", icon(m), m.Name, uptime(m), detail(m, page.GeneratedAt))
		}
	}
	_ = tw.Flush()
}

func icon(m statuspage.Monitor) string {
	switch {
	case m.LastCheckAt == nil:
		return "⚪"
	case m.Status == "down":
		return "🔴"
	default:
		return "🟢"
	}
}

func uptime(m statuspage.Monitor) string {
	if m.UptimePercent == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *m.UptimePercent)
}

func detail(m statuspage.Monitor, now time.Time) string {
	if m.IncidentStart != nil {
		return fmt.Sprintf("down for %s: %s", notify.Duration(now.Sub(*m.IncidentStart)), m.LastReason)
	}
	if m.InMaintenance {
		return "in maintenance"
	}
	return ""
}
