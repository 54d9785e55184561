package domain

import (
	"fmt"
	"strings"
)

// Topic is an opaque broadcast scope key of the form "match:<id>" or
// "tournament:<id>". It exists only as a key in the live registry; a topic is
// never persisted.
type Topic string

const (
	topicPrefixMatch      = "match:"
	topicPrefixTournament = "tournament:"
)

// MatchTopic builds the broadcast topic for a match.
func MatchTopic(matchID string) Topic {
	return Topic(topicPrefixMatch + matchID)
}

// TournamentTopic builds the broadcast topic for a tournament.
func TournamentTopic(tournamentID string) Topic {
	return Topic(topicPrefixTournament + tournamentID)
}

// ParseTopic validates a client-supplied topic string.
func ParseTopic(s string) (Topic, error) {
	switch {
	case strings.HasPrefix(s, topicPrefixMatch) && len(s) > len(topicPrefixMatch):
		return Topic(s), nil
	case strings.HasPrefix(s, topicPrefixTournament) && len(s) > len(topicPrefixTournament):
		return Topic(s), nil
	}
	return "", fmt.Errorf("invalid topic %q", s)
}
