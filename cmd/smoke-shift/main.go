// Command smoke-shift runs one full worker shift against a live API:
// mint identities, fetch the event QR, check in, check out, and verify the
// event summary reflects the closed session. Intended for the in-memory
// demo deployment.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("PROSTAFF_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	eventID := os.Getenv("PROSTAFF_SMOKE_EVENT")
	if eventID == "" {
		eventID = "ev-demo"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	organizer := mintToken(client, base, "org-demo", "organizer")
	worker := mintToken(client, base, "w-demo-2", "worker")

	var qr struct {
		QRCode string `json:"qrCode"`
	}
	call(client, http.MethodGet, base+"/v1/work-schedule/"+eventID+"/qr", organizer, nil, &qr)
	if qr.QRCode == "" {
		log.Fatal("no qrCode in response")
	}

	var envelope struct {
		Token string `json:"token"`
	}
	raw, err := base64.StdEncoding.DecodeString(qr.QRCode)
	if err != nil {
		log.Fatalf("decode qr payload: %v", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Fatalf("parse qr envelope: %v", err)
	}

	var opened struct {
		Session struct {
			ID     string `json:"sessionId"`
			Status string `json:"status"`
		} `json:"session"`
	}
	call(client, http.MethodPost, base+"/v1/work-schedule/check-in", worker,
		map[string]string{"qrToken": envelope.Token}, &opened)
	if opened.Session.Status != "checked_in" {
		log.Fatalf("check-in status = %q", opened.Session.Status)
	}

	var closed struct {
		Session struct {
			ID       string   `json:"sessionId"`
			Status   string   `json:"status"`
			Earnings *float64 `json:"earnings"`
		} `json:"session"`
	}
	call(client, http.MethodPost, base+"/v1/work-schedule/check-out", worker,
		map[string]string{"qrToken": envelope.Token}, &closed)
	if closed.Session.Status != "checked_out" || closed.Session.ID != opened.Session.ID {
		log.Fatalf("check-out mismatch: %+v", closed.Session)
	}
	if closed.Session.Earnings == nil {
		log.Fatal("check-out returned no earnings")
	}

	var summary struct {
		Overall struct {
			TotalSessions int `json:"totalSessions"`
		} `json:"overall"`
	}
	call(client, http.MethodGet, base+"/v1/work-schedule/"+eventID+"/summary", organizer, nil, &summary)
	if summary.Overall.TotalSessions < 1 {
		log.Fatalf("summary shows %d sessions", summary.Overall.TotalSessions)
	}

	fmt.Printf("✅ shift smoke test passed: session=%s earnings=%.2f\n",
		closed.Session.ID, *closed.Session.Earnings)
}

func mintToken(client *http.Client, base, user, role string) string {
	var resp struct {
		Token string `json:"token"`
	}
	call(client, http.MethodPost, base+"/v1/auth/token", "",
		map[string]any{"user": user, "roles": []string{role}}, &resp)
	if resp.Token == "" {
		log.Fatalf("no token minted for %s", user)
	}
	return resp.Token
}

func call(client *http.Client, method, url, bearer string, body, out any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var payload map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		log.Fatalf("%s %s: status %d: %v", method, url, resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s response: %v", url, err)
		}
	}
}
