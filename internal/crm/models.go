package crm

import "time"

// Contact is the minimal CRM contact shape the recorder needs.
type Contact struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// TransferTarget is a tenant-configured human handoff destination.
// Immutable once configured.
type TransferTarget struct {
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Extension    string `json:"extension,omitempty"`
	Department   string `json:"department,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// TransferEvent records that a live call was handed off to a human target.
// Created exactly once per transfer, consumed by the recorder, then dropped.
type TransferEvent struct {
	CallID     string         `json:"call_id"`
	AgentID    string         `json:"agent_id"`
	FromNumber string         `json:"from_number,omitempty"`
	ToNumber   string         `json:"to_number,omitempty"`
	Target     TransferTarget `json:"target"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
