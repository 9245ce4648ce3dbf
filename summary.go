package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mil-ad/budsmic/internal/headset"
)

// StepSummary is one workflow step as printed to the user.
type StepSummary struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunSummary is the printable form of a headset.Report.
type RunSummary struct {
	RunID      string      `json:"run_id"`
	Device     string      `json:"device"`
	Address    string      `json:"address,omitempty"`
	Adapter    StepSummary `json:"adapter"`
	Discovery  StepSummary `json:"discovery"`
	Connection StepSummary `json:"connection"`
	Profile    StepSummary `json:"profile"`
	Source     string      `json:"source,omitempty"`
	Played     string      `json:"played,omitempty"`
	Recording  string      `json:"recording,omitempty"`
}

func step(status headset.Status, detail string, err error) StepSummary {
	s := StepSummary{Status: status.String(), Detail: detail}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

func summarize(r headset.Report) RunSummary {
	s := RunSummary{
		RunID:   r.RunID,
		Device:  r.Device,
		Address: r.Discovery.Device.Address,
		Adapter: step(r.Adapter.Status, fmt.Sprintf("service_started=%t powered=%t",
			r.Adapter.ServiceStarted, r.Adapter.Powered), r.Adapter.Err),
		Discovery: step(r.Discovery.Status(), fmt.Sprintf("%s after %d polls",
			r.Discovery.State, r.Discovery.Polls), r.Discovery.Err),
		Connection: step(r.Connection.Status, connectionDetail(r.Connection), r.Connection.Err),
		Profile:    step(r.Profile.Status, r.Profile.Profile.Name(), r.Profile.Err),
	}

	if src, ok := r.Microphone(); ok {
		s.Source = src.Name
	}

	return s
}

func connectionDetail(c headset.ConnectionAttempt) string {
	if c.Status == headset.StatusSkipped {
		return ""
	}
	return fmt.Sprintf("connect=%s verified=%t pairing=%s", c.Outcome, c.Verified, c.Pairing)
}

func (s RunSummary) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "run %s: %s %s\n", s.RunID, s.Device, s.Address)
	for _, row := range []struct {
		name string
		step StepSummary
	}{
		{"adapter", s.Adapter},
		{"discovery", s.Discovery},
		{"connection", s.Connection},
		{"profile", s.Profile},
	} {
		fmt.Fprintf(w, "  %-10s %-9s %s\n", row.name, row.step.Status, row.step.Detail)
		if row.step.Error != "" {
			fmt.Fprintf(w, "  %-10s %-9s %s\n", "", "", row.step.Error)
		}
	}
	if s.Source != "" {
		fmt.Fprintf(w, "  microphone %s\n", s.Source)
	}
	if s.Played != "" {
		fmt.Fprintf(w, "  played     %s\n", s.Played)
	}
	if s.Recording != "" {
		fmt.Fprintf(w, "  recorded   %s\n", s.Recording)
	}
	return nil
}
