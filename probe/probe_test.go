package probe

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/process"
)

type fakeModels []model.Asset

func (f fakeModels) StatusAll() []model.Asset { return f }

func versions(outputs map[string]string) process.Executor {
	return process.ExecutorFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		out, ok := outputs[cmd.Binary]
		if !ok {
			return nil, process.ErrBinaryNotFound
		}
		return &process.Result{Stdout: []byte(out)}, nil
	})
}

func lookIn(present ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, p := range present {
			if p == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", fmt.Errorf("%s: not found", name)
	}
}

func TestCheckAllPresent(t *testing.T) {
	exec := versions(map[string]string{
		"/usr/bin/yt-dlp":      "2024.08.06\n",
		"/usr/bin/ffmpeg":      "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers\n",
		"/usr/bin/whisper-cli": "usage: whisper-cli [options] file0 file1 ...\n",
	})
	models := fakeModels{
		{Tier: model.TierBase, State: model.StateReady, Size: 147_000_000, Path: "/m/ggml-base.bin"},
	}
	p := New(DefaultTools("yt-dlp", "ffmpeg", "whisper-cli"), exec, models, nil,
		WithLookPath(lookIn("yt-dlp", "ffmpeg", "whisper-cli")))

	r := p.CheckAll(context.Background())
	if len(r.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(r.Entries))
	}
	if !r.AllCompatible() {
		t.Errorf("expected all present-and-compatible, got %+v", r.Entries)
	}
	if r.Entries[0].Version != "2024.08.06" || r.Entries[1].Version != "6.1.1" {
		t.Errorf("unexpected versions %q %q", r.Entries[0].Version, r.Entries[1].Version)
	}
	if !strings.Contains(r.Text(), "✅ yt-dlp: present-and-compatible") {
		t.Errorf("unexpected text %q", r.Text())
	}
}

func TestCheckAllAbsentAndOld(t *testing.T) {
	exec := versions(map[string]string{"/usr/bin/yt-dlp": "2021.12.27"})
	models := fakeModels{
		{Tier: model.TierTiny, State: model.StateMissing},
		{Tier: model.TierBase, State: model.StateDownloading},
	}
	p := New(DefaultTools("yt-dlp", "ffmpeg", ""), exec, models, nil, WithLookPath(lookIn("yt-dlp")))

	r := p.CheckAll(context.Background())
	want := []Status{StatusIncompatible, StatusAbsent, StatusAbsent, StatusIncompatible}
	if len(r.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(r.Entries))
	}
	for i, w := range want {
		if r.Entries[i].Status != w {
			t.Errorf("entry %s: expected %s, got %s", r.Entries[i].Name, w, r.Entries[i].Status)
		}
	}
	if r.AllCompatible() {
		t.Error("expected report to be incomplete")
	}
	if !strings.Contains(r.Text(), "not installed") {
		t.Errorf("expected missing model in text, got %q", r.Text())
	}
}

func TestUnparseableVersionIsCompatible(t *testing.T) {
	exec := versions(map[string]string{"/usr/bin/ffmpeg": "ffmpeg version N-112345-gabcdef"})
	p := New([]Tool{{Name: "ffmpeg", Binary: "ffmpeg", VersionArgs: []string{"-version"}, Minimum: "4.0"}}, exec, nil, nil,
		WithLookPath(lookIn("ffmpeg")))
	r := p.CheckAll(context.Background())
	if r.Entries[0].Status != StatusOK {
		t.Errorf("expected compatible for git build, got %s", r.Entries[0].Status)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"4.0", "4.0", 0},
		{"4.4.2", "4.0", 1},
		{"3.9", "4.0", -1},
		{"2023.01.01", "2023.1.1", 0},
		{"2022.12.31", "2023.01.01", -1},
		{"6", "4.0", 1},
	}
	for _, tc := range tests {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) expected %d, got %d", tc.a, tc.b, tc.want, got)
		}
	}
}
