package reservation

import (
	"context"
	"strings"

	"github.com/journeywithfriends/forest-bot/internal/config"
	"go.uber.org/zap"
)

const (
	tabNameMaxLength = 100
	tabBaseMaxLength = 90
	tabSuffixLength  = 5
)

// tabNameStripper removes the characters the spreadsheet platform forbids in
// tab titles.
var tabNameStripper = strings.NewReplacer(`\`, "", "/", "", "?", "", "*", "", "[", "", "]", "")

// tabResolution names the target tab and records how the name was obtained.
type tabResolution struct {
	Name            string
	FromDisplayName bool
}

// resolveTab picks the tab a group's rows live in. Under the shared scheme it
// is a fixed configured name. Under the group scheme it is the sanitized
// group display name when the directory lookup succeeds, and the raw group
// identifier when it does not.
func (s *Service) resolveTab(ctx context.Context, groupID string) tabResolution {
	if s.scheme == config.PartitionShared {
		return tabResolution{Name: s.sharedTab}
	}

	displayName, err := s.directory.GroupName(ctx, groupID)
	if err != nil || strings.TrimSpace(displayName) == "" {
		if err != nil {
			s.logger.Warn("group name lookup failed, using raw identifier",
				zap.String("group_id", groupID),
				zap.Error(err))
		}
		return tabResolution{Name: groupID}
	}
	return tabResolution{Name: SanitizeTabName(displayName, groupID), FromDisplayName: true}
}

// SanitizeTabName turns a group display name into a legal, collision-resistant
// tab title: forbidden characters are stripped, the base is capped at 90
// characters, and a dash plus the last 5 characters of the group identifier
// is appended, with the whole result capped at 100 characters.
func SanitizeTabName(displayName, groupID string) string {
	base := truncateRunes(tabNameStripper.Replace(displayName), tabBaseMaxLength)
	if strings.TrimSpace(base) == "" {
		return truncateRunes(groupID, tabNameMaxLength)
	}

	suffix := []rune(groupID)
	if len(suffix) > tabSuffixLength {
		suffix = suffix[len(suffix)-tabSuffixLength:]
	}

	return truncateRunes(base+"-"+string(suffix), tabNameMaxLength)
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
