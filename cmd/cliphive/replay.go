package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/session"
	"github.com/hyobinnSeo/VoiceSync/internal/timeline"
)

type replayOptions struct {
	speechPath    string
	subtitlesPath string
	eventsPath    string
	rate          float64
	autoplay      bool
}

// replayRow is one applied event and its outcome.
type replayRow struct {
	Step     int
	Event    string
	Commands string
	Active   int
	Visible  string
	Notices  []string
}

func newReplayCommand() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a recorded player script through a session and print the commands it produces",
		RunE: func(cmd *cobra.Command, args []string) error {
			var speech, subtitles []segment.Raw
			var events []session.Event
			if err := readJSONFile(opts.speechPath, &speech); err != nil {
				return err
			}
			if opts.subtitlesPath != "" {
				if err := readJSONFile(opts.subtitlesPath, &subtitles); err != nil {
					return err
				}
			}
			if err := readJSONFile(opts.eventsPath, &events); err != nil {
				return err
			}

			rows, report, err := runReplay(speech, subtitles, events, opts.rate, opts.autoplay)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "speech kept %d, unplayable %d; subtitles kept %d\n",
				report.Speech.Kept, report.Speech.Unplayable, report.Subtitles.Kept)
			fmt.Fprintln(out, renderReplay(rows))
			for _, row := range rows {
				for _, n := range row.Notices {
					fmt.Fprintf(out, "step %d: %s\n", row.Step, n)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.speechPath, "speech", "", "JSON file with speech entries")
	cmd.Flags().StringVar(&opts.subtitlesPath, "subtitles", "", "JSON file with subtitle entries")
	cmd.Flags().StringVar(&opts.eventsPath, "events", "", "JSON file with player events")
	cmd.Flags().Float64Var(&opts.rate, "rate", 1, "Speaking rate multiplier")
	cmd.Flags().BoolVar(&opts.autoplay, "autoplay", true, "Acknowledge every play command as started")
	_ = cmd.MarkFlagRequired("speech")
	_ = cmd.MarkFlagRequired("events")
	return cmd
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// runReplay applies each event as its own batch. With autoplay, every play
// command is answered with an audio_started event in a follow-up step.
func runReplay(speech, subtitles []segment.Raw, events []session.Event, rate float64, autoplay bool) ([]replayRow, session.Report, error) {
	speechEntries := segment.Normalize(speech)
	subtitleEntries, _ := segment.NormalizeMode(subtitles, segment.Subtitles)
	s, report := session.New(speechEntries, subtitleEntries, session.Options{SpeakingRate: rate})
	defer s.Close()

	var rows []replayRow
	apply := func(ev session.Event) (session.Result, error) {
		res, err := s.Apply([]session.Event{ev})
		if err != nil {
			return res, fmt.Errorf("step %d (%s): %w", len(rows)+1, ev.Type, err)
		}
		rows = append(rows, replayRow{
			Step:     len(rows) + 1,
			Event:    describeEvent(ev),
			Commands: describeCommands(res.Commands),
			Active:   res.Engine.ActiveIndex,
			Visible:  describeVisible(res.Subtitles.Visible),
			Notices:  res.Notices,
		})
		return res, nil
	}

	for _, ev := range events {
		res, err := apply(ev)
		if err != nil {
			return rows, report, err
		}
		if !autoplay {
			continue
		}
		for _, c := range res.Commands {
			if c.Op != session.OpPlay {
				continue
			}
			ack := session.Event{Type: session.EventAudioStarted, Segment: c.Segment, Attempt: c.Attempt}
			if _, err := apply(ack); err != nil {
				return rows, report, err
			}
		}
	}
	return rows, report, nil
}

func describeEvent(ev session.Event) string {
	var b strings.Builder
	b.WriteString(string(ev.Type))
	if ev.Position != nil {
		b.WriteString(" @")
		b.WriteString(strconv.FormatFloat(*ev.Position, 'f', -1, 64))
	}
	switch ev.Type {
	case session.EventRateChange:
		b.WriteString(" x")
		b.WriteString(strconv.FormatFloat(ev.Rate, 'f', -1, 64))
	case session.EventAudioStarted, session.EventAudioRejected, session.EventAudioEnded:
		fmt.Fprintf(&b, " seg %d", ev.Segment)
		if ev.Attempt > 0 {
			fmt.Fprintf(&b, " #%d", ev.Attempt)
		}
	}
	return b.String()
}

func describeCommands(commands []session.Command) string {
	parts := make([]string, 0, len(commands))
	for _, c := range commands {
		p := strconv.Itoa(c.Segment) + ":" + c.Op
		switch c.Op {
		case session.OpPlay:
			p += "#" + strconv.FormatUint(c.Attempt, 10)
		case session.OpRate:
			p += "=" + strconv.FormatFloat(c.Rate, 'f', -1, 64)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

func describeVisible(visible []int) string {
	parts := make([]string, len(visible))
	for i, v := range visible {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func renderReplay(rows []replayRow) string {
	headers := []string{"Step", "Event", "Commands", "Active", "Subtitles"}
	body := make([][]string, len(rows))
	for i, r := range rows {
		active := "-"
		if r.Active != timeline.None {
			active = strconv.Itoa(r.Active)
		}
		body[i] = []string{strconv.Itoa(r.Step), r.Event, r.Commands, active, r.Visible}
	}
	return renderTable(headers, body, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
}
