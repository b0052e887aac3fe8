package priority

import (
	"strings"
	"time"

	"ai_server/core/domain"
)

// SLA targets in hours per priority level.
var slaTargets = map[domain.PriorityLevel]int{
	domain.PriorityHigh:   24,
	domain.PriorityMedium: 72,
	domain.PriorityLow:    168,
}

// DefaultSLAHours applies to unrecognized levels.
const DefaultSLAHours = 72

// SLAHours returns the resolution budget for a level.
func SLAHours(level string) int {
	if hours, ok := slaTargets[normalizeLevel(level)]; ok {
		return hours
	}
	return DefaultSLAHours
}

// SLADeadline computes the deadline for a level from the creation time.
// The level is echoed back in canonical form when it is recognized.
func SLADeadline(level string, createdAt time.Time) *domain.SLAInfo {
	hours := SLAHours(level)
	priority := normalizeLevel(level)
	if _, ok := slaTargets[priority]; !ok {
		priority = domain.PriorityLevel(level)
	}

	return &domain.SLAInfo{
		SLAHours: hours,
		Deadline: createdAt.Add(time.Duration(hours) * time.Hour).Format(time.RFC3339),
		Priority: priority,
	}
}

func normalizeLevel(level string) domain.PriorityLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "high":
		return domain.PriorityHigh
	case "medium":
		return domain.PriorityMedium
	case "low":
		return domain.PriorityLow
	default:
		return domain.PriorityLevel(level)
	}
}
