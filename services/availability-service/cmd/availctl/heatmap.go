package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

type heatmapResult struct {
	Participants int                        `json:"participants"`
	Slots        []overlap.SlotParticipants `json:"slots,omitempty"`
	Sessions     []overlap.Session          `json:"sessions,omitempty"`
}

func newHeatmapCmd() *cobra.Command {
	var (
		file            string
		startDate       string
		endDate         string
		sessionMinutes  int
		minParticipants int
	)
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Find common slots and sessions in a rules file",
		Long: `Reads a JSON object mapping participant IDs to their stored (UTC) rules and prints
the slots where enough participants are free. With --session it prints candidate
meeting starts of that length instead of single slots.`,
		Example: `  availctl heatmap --file rules.json --start 2024-01-07 --end 2024-01-13 --min 2
  availctl heatmap --file rules.json --start 2024-01-07 --end 2024-01-13 --session 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			participants, err := readRulesFile(file)
			if err != nil {
				return err
			}
			dr := timerange.DateRange{StartDate: startDate, EndDate: endDate}
			h, err := overlap.ComputeHeatmap(participants, dr)
			if err != nil {
				return err
			}
			out := heatmapResult{
				Participants: len(participants),
				Slots:        overlap.OverlappingFromHeatmap(h, len(participants), minParticipants),
			}
			if sessionMinutes > 0 {
				out.Sessions, err = overlap.SessionsFromHeatmap(h, len(participants), sessionMinutes, minParticipants)
				if err != nil {
					return err
				}
				out.Slots = nil
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "rules file (participant ID to rules)")
	cmd.Flags().StringVar(&startDate, "start", "", "first UTC date YYYY-MM-DD")
	cmd.Flags().StringVar(&endDate, "end", "", "last UTC date YYYY-MM-DD")
	cmd.Flags().IntVar(&sessionMinutes, "session", 0, "meeting length in minutes")
	cmd.Flags().IntVar(&minParticipants, "min", 0, "minimum participants per slot, 0 means everyone")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func readRulesFile(path string) (map[string][]model.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var participants map[string][]model.Rule
	if err := json.Unmarshal(raw, &participants); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return participants, nil
}
