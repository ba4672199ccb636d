package types

// ---- Firmware update (retained state + control) ----

// UpdateResult is the externally visible outcome of one update attempt.
type UpdateResult string

const (
	UpdateOK           UpdateResult = "ok"
	UpdateNoChange     UpdateResult = "no_change"
	UpdateNotAvailable UpdateResult = "not_available"
	UpdateFailed       UpdateResult = "failed"
)

// FirmwareState is retained on firmware/state.
type FirmwareState struct {
	Level  string       `json:"level"`  // "idle", "updating", "stopped", "error"
	Status string       `json:"status"` // freeform short code
	Result UpdateResult `json:"result,omitempty"`
	TS     int64        `json:"ts_ms"`
}

// UpdateReply answers a firmware/control/update request on its ReplyTo topic.
type UpdateReply struct {
	OK     bool         `json:"ok"`
	Result UpdateResult `json:"result"`
}

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Parameters ----

// NamedValue is one persistable parameter as exported by the store.
type NamedValue struct {
	Name  string
	Value float32
}

// ---- Configuration (topic "config/firmware") ----

// Parameter preservation is not configured here; it is a construction-time
// capability of the updater (present or absent parameter store).
type FirmwareConfig struct {
	ImageName  string `json:"image_name,omitempty"`  // default "bootloader.bin"
	AutoUpdate bool   `json:"auto_update,omitempty"` // run one attempt when config arrives
}

// ---- Supervisor (topic "config/supervisor") ----

type SupervisorConfig struct {
	TickMs  uint32 `json:"tick_ms,omitempty"`
	GraceMs uint32 `json:"grace_ms,omitempty"`
}

// SupervisorState is retained on supervisor/state.
type SupervisorState struct {
	Level  string `json:"level"` // "live", "stalled"
	Status string `json:"status"`
	TS     int64  `json:"ts_ms"`
}
