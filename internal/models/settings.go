package models

import "github.com/uptrace/bun"

// SettingNextCheckNumber is the global check-number counter. The key is
// reserved for the check-number allocator and rejected by the settings
// service.
const SettingNextCheckNumber = "next_check_number"

type Setting struct {
	bun.BaseModel `bun:"table:settings"`

	Key   string `bun:"key,pk" json:"key"`
	Value string `bun:"value" json:"value"`
}
