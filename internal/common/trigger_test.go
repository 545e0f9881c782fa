package common

import (
	"reflect"
	"testing"
	"time"
)

func TestTriggerWallClockTimes(t *testing.T) {
	trig := Trigger{
		Metadata: EventMetadata{ID: "evt1", Timestamp: mustParse(t, "2022-11-20T05:30:00+00:00")},
		Pre:      Seconds(90 * time.Second),
		Post:     Seconds(150 * time.Second),
	}

	if got := trig.StartTime(); !got.Equal(mustParse(t, "2022-11-20T05:28:30+00:00")) {
		t.Errorf("StartTime() = %v, want 05:28:30", got)
	}
	if got := trig.EndTime(); !got.Equal(mustParse(t, "2022-11-20T05:32:30+00:00")) {
		t.Errorf("EndTime() = %v, want 05:32:30", got)
	}
}

func TestTriggerFromDefaultAndCommandFillsFromTemplate(t *testing.T) {
	tmpl := TriggerTemplate{
		Cameras: []string{"front", "back"},
		Reason:  "motion",
		Pre:     Seconds(30 * time.Second),
		Post:    Seconds(60 * time.Second),
	}
	now := mustParse(t, "2022-11-20T05:30:00+00:00")

	trig := TriggerFromDefaultAndCommand(tmpl, TriggerCommand{ID: "cmd1"}, now)

	if trig.Metadata.ID != "cmd1" {
		t.Errorf("ID = %q, want cmd1", trig.Metadata.ID)
	}
	if !trig.Metadata.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v (command omitted it)", trig.Metadata.Timestamp, now)
	}
	if !reflect.DeepEqual(trig.Cameras, tmpl.Cameras) {
		t.Errorf("cameras = %v, want template default %v", trig.Cameras, tmpl.Cameras)
	}
	if trig.Reason != tmpl.Reason {
		t.Errorf("reason = %q, want template default %q", trig.Reason, tmpl.Reason)
	}
	if trig.Pre != tmpl.Pre || trig.Post != tmpl.Post {
		t.Errorf("pre/post = %v/%v, want template defaults %v/%v", trig.Pre, trig.Post, tmpl.Pre, tmpl.Post)
	}
}

func TestTriggerFromDefaultAndCommandOverridesTemplate(t *testing.T) {
	tmpl := TriggerTemplate{
		Cameras: []string{"front"},
		Reason:  "motion",
		Pre:     Seconds(30 * time.Second),
		Post:    Seconds(60 * time.Second),
	}
	now := mustParse(t, "2022-11-20T05:30:00+00:00")
	ts := mustParse(t, "2022-11-20T06:00:00+00:00")
	reason := "manual"
	pre := Seconds(10 * time.Second)
	post := Seconds(20 * time.Second)

	cmd := TriggerCommand{
		ID:        "cmd1",
		Timestamp: &ts,
		Cameras:   []string{"back", "side"},
		Reason:    &reason,
		Pre:       &pre,
		Post:      &post,
	}

	trig := TriggerFromDefaultAndCommand(tmpl, cmd, now)

	if !trig.Metadata.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want command override %v", trig.Metadata.Timestamp, ts)
	}
	if !reflect.DeepEqual(trig.Cameras, cmd.Cameras) {
		t.Errorf("cameras = %v, want command override %v", trig.Cameras, cmd.Cameras)
	}
	if trig.Reason != reason {
		t.Errorf("reason = %q, want command override %q", trig.Reason, reason)
	}
	if trig.Pre != pre || trig.Post != post {
		t.Errorf("pre/post = %v/%v, want command overrides %v/%v", trig.Pre, trig.Post, pre, post)
	}
}
