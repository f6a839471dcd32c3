// Package step 记录启发式步骤的执行结果：成功、降级（有原因）或失败。
package step

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

type Status int

const (
	Succeeded Status = iota
	Degraded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, v := range []Status{Succeeded, Degraded, Failed} {
		if v.String() == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown step status %q", name)
}

// Outcome 是单个步骤的结果。Reason 仅在降级或失败时有值。
type Outcome struct {
	Step   string `json:"step"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Ok(name string) Outcome {
	return Outcome{Step: name, Status: Succeeded}
}

func Degrade(name string, format string, args ...any) Outcome {
	return Outcome{Step: name, Status: Degraded, Reason: fmt.Sprintf(format, args...)}
}

func Fail(name string, err error) Outcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Step: name, Status: Failed, Reason: reason}
}

func (o Outcome) OK() bool {
	return o.Status == Succeeded
}

// Usable 表示步骤至少以降级方式完成。
func (o Outcome) Usable() bool {
	return o.Status != Failed
}

// Log 按状态选择日志级别写入一条记录。
func (o Outcome) Log(log *zerolog.Logger) {
	var evt *zerolog.Event
	switch o.Status {
	case Succeeded:
		evt = log.Debug()
	case Degraded:
		evt = log.Warn()
	default:
		evt = log.Error()
	}
	evt.Str("step", o.Step).Str("status", o.Status.String())
	if o.Reason != "" {
		evt = evt.Str("reason", o.Reason)
	}
	evt.Msg("step finished")
}
