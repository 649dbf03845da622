// Package track derives the "visual channel active" signal from the set of
// currently subscribed media tracks. It owns no tracks and keeps no state;
// the predicate is recomputed on every track-set change.
package track

import (
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

// HasVisualTrack reports whether a remote participant is publishing video.
// The user's own camera track never counts: avatar presentation depends on
// the agent's video, not on local publication.
func HasVisualTrack(tracks []protocol.TrackRef) bool {
	for _, t := range tracks {
		if t.Kind == protocol.TrackKindVideo && !t.Local {
			return true
		}
	}
	return false
}
