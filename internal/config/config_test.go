package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.TrackCount != 8 || cfg.SceneCount != 8 {
		t.Errorf("TrackCount/SceneCount = %d/%d, want 8/8", cfg.TrackCount, cfg.SceneCount)
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels = %d, want 2", cfg.Channels)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("LAUNCHCORE_TRACK_COUNT", "16")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.TrackCount != 16 {
		t.Errorf("TrackCount = %d, want 16 (env override)", cfg.TrackCount)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []Config{
		{SampleRate: 0, MaxBlock: 128, Channels: 2, TrackCount: 1, SceneCount: 1},
		{SampleRate: 44100, MaxBlock: 0, Channels: 2, TrackCount: 1, SceneCount: 1},
		{SampleRate: 44100, MaxBlock: 128, Channels: 1, TrackCount: 1, SceneCount: 1},
		{SampleRate: 44100, MaxBlock: 128, Channels: 2, TrackCount: 0, SceneCount: 1},
		{SampleRate: 44100, MaxBlock: 128, Channels: 2, TrackCount: 1, SceneCount: 0},
		{SampleRate: 44100, MaxBlock: 128, Channels: 2, TrackCount: 1, SceneCount: 1, MaxFxSlots: -1},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error for %+v", i, c)
		}
	}
}

func TestLimitsDerivedFromConfig(t *testing.T) {
	c := Config{
		TrackCount:          4,
		SceneCount:          6,
		MaxFxSlots:          2,
		MaxNotesPerClip:     100,
		MaxAutomationLanes:  5,
		MaxAutomationPoints: 32,
		MaxBlock:            512,
	}
	limits := c.Limits()
	if limits.TrackCount != 4 || limits.SceneCount != 6 || limits.MaxFxSlots != 2 ||
		limits.MaxNotesPerClip != 100 || limits.MaxAutomationLanes != 5 ||
		limits.MaxAutomationPoints != 32 || limits.MaxBlock != 512 {
		t.Fatalf("Limits() = %+v, did not round-trip Config fields", limits)
	}
}
