package llm

import (
	"strconv"
	"strings"
)

// ModelFor routes an agent to a completion model: the planner and the late
// review agents (8..10) get the heavier model, the middle of the chain runs
// on the fast one.
func (c *Client) ModelFor(agentID string) string {
	parts := strings.Split(agentID, "-")
	if len(parts) < 3 {
		return c.cfg.FlashModel
	}
	num, err := strconv.Atoi(parts[2])
	if err != nil {
		return c.cfg.FlashModel
	}
	if num == 1 || num >= 8 {
		return c.cfg.CoderModel
	}
	return c.cfg.FlashModel
}
