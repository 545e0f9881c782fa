package common

import "time"

// Trigger is a single fully-resolved firing of a camera event: "record these
// cameras from pre seconds before timestamp to post seconds after it, for
// this reason". Triggers are the only inbound write to the event lifecycle
// engine; everything else (Event, ArchiveTask, ...) is derived from them.
type Trigger struct {
	Metadata EventMetadata `json:"metadata"`
	Reason   string        `json:"reason"`
	Cameras  []string      `json:"cameras"`
	Pre      Seconds       `json:"pre"`
	Post     Seconds       `json:"post"`
}

// StartTime is the earliest instant this trigger asks to have recorded.
func (t Trigger) StartTime() time.Time {
	return t.Metadata.Timestamp.Add(-t.Pre.Duration())
}

// EndTime is the latest instant this trigger asks to have recorded.
func (t Trigger) EndTime() time.Time {
	return t.Metadata.Timestamp.Add(t.Post.Duration())
}

// TriggerTemplate supplies defaults for any field a TriggerCommand leaves
// unset. Templates are configured per trigger id; there is no
// deployment-wide fallback template, so a command whose id has no template
// is resolved against the zero TriggerTemplate.
type TriggerTemplate struct {
	Cameras []string `toml:"cameras" json:"cameras"`
	Reason  string   `toml:"reason" json:"reason"`
	Pre     Seconds  `toml:"pre" json:"pre"`
	Post    Seconds  `toml:"post" json:"post"`
}

// TriggerCommand is the inbound wire shape for a trigger: only the id is
// required, every other field falls back to the matching TriggerTemplate
// field when absent.
type TriggerCommand struct {
	ID        string     `json:"id"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Cameras   []string   `json:"cameras,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	Pre       *Seconds   `json:"pre,omitempty"`
	Post      *Seconds   `json:"post,omitempty"`
}

// TriggerFromDefaultAndCommand resolves a TriggerCommand against a template,
// producing a fully populated Trigger. A missing timestamp defaults to now.
func TriggerFromDefaultAndCommand(tmpl TriggerTemplate, cmd TriggerCommand, now time.Time) Trigger {
	ts := now
	if cmd.Timestamp != nil {
		ts = *cmd.Timestamp
	}

	cameras := tmpl.Cameras
	if cmd.Cameras != nil {
		cameras = cmd.Cameras
	}

	reason := tmpl.Reason
	if cmd.Reason != nil {
		reason = *cmd.Reason
	}

	pre := tmpl.Pre
	if cmd.Pre != nil {
		pre = *cmd.Pre
	}

	post := tmpl.Post
	if cmd.Post != nil {
		post = *cmd.Post
	}

	return Trigger{
		Metadata: EventMetadata{ID: cmd.ID, Timestamp: ts},
		Reason:   reason,
		Cameras:  cameras,
		Pre:      pre,
		Post:     post,
	}
}
