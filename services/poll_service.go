// Package services — PollService: channel polls with single, multiple and
// ranked-choice (instant-runoff) voting.
//
// There is no donor equivalent — the donor app has no polls at all. The
// vote-counting and instant-runoff algorithm are ported from the original
// Rust source's compute_instant_runoff, re-expressed in Go.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/pkg/id"
	"github.com/akinalp/mqvi/repository"
)

// PollBroadcaster is the narrow interface PollService needs from the
// gateway router — broadcasting POLL_* events to every member of the
// channel's server.
type PollBroadcaster interface {
	BroadcastToServer(serverID, event string, data any, excludeUserID string)
}

// PollService manages polls and their votes.
type PollService interface {
	Create(ctx context.Context, userID, channelID string, req *models.CreatePollRequest) (*models.PollWithResults, error)
	Get(ctx context.Context, userID, pollID string) (*models.PollWithResults, error)
	CastVote(ctx context.Context, userID, pollID string, req *models.CastVoteRequest) (*models.PollWithResults, error)
	RetractVote(ctx context.Context, userID, pollID string) (*models.PollWithResults, error)
	Close(ctx context.Context, userID, pollID string) (*models.PollWithResults, error)
	// CloseExpired closes every poll whose deadline has passed and
	// broadcasts POLL_CLOSE for each. Called by the Deferred-Work Loop.
	CloseExpired(ctx context.Context) error
}

type pollService struct {
	pollRepo      repository.PollRepository
	messageRepo   repository.MessageRepository
	channelGetter ChannelGetter
	permResolver  ChannelPermResolver
	hub           PollBroadcaster
}

// NewPollService, constructor — interface döner.
func NewPollService(
	pollRepo repository.PollRepository,
	messageRepo repository.MessageRepository,
	channelGetter ChannelGetter,
	permResolver ChannelPermResolver,
	hub PollBroadcaster,
) PollService {
	return &pollService{
		pollRepo:      pollRepo,
		messageRepo:   messageRepo,
		channelGetter: channelGetter,
		permResolver:  permResolver,
		hub:           hub,
	}
}

func (s *pollService) Create(ctx context.Context, userID, channelID string, req *models.CreatePollRequest) (*models.PollWithResults, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	channel, err := s.channelGetter.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermViewChannel) || !perms.Has(models.PermSendMessages) {
		return nil, fmt.Errorf("%w: missing permission to create a poll here", pkg.ErrForbidden)
	}

	// The poll question is the underlying message's content, so a poll
	// shows up in history and notifications exactly like any message.
	message := &models.Message{
		ID:        id.New(),
		ChannelID: channelID,
		UserID:    userID,
		Content:   &req.Question,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create poll message: %w", err)
	}

	poll := &models.Poll{
		MessageID: message.ID,
		ChannelID: channelID,
		CreatorID: userID,
		Question:  req.Question,
		Type:      models.PollType(req.PollType),
		Anonymous: req.Anonymous,
		ClosesAt:  req.ClosesAt,
	}
	options := make([]models.PollOption, len(req.Options))
	for i, opt := range req.Options {
		options[i] = models.PollOption{Label: opt.Label, Position: i}
	}

	if err := s.pollRepo.Create(ctx, poll, options); err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	results := buildPollResults(*poll, options, nil, userID)

	s.hub.BroadcastToServer(channel.ServerID, gateway.EventMessageCreate, map[string]any{
		"id":         message.ID,
		"channel_id": channelID,
		"user_id":    userID,
		"content":    req.Question,
		"created_at": message.CreatedAt,
		"poll":       results,
	}, "")
	s.hub.BroadcastToServer(channel.ServerID, gateway.EventPollCreate, map[string]any{
		"channel_id": channelID,
		"message_id": message.ID,
		"poll":       results,
	}, "")

	return &results, nil
}

func (s *pollService) Get(ctx context.Context, userID, pollID string) (*models.PollWithResults, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermViewChannel) {
		return nil, fmt.Errorf("%w: cannot view this channel", pkg.ErrForbidden)
	}

	options, err := s.pollRepo.GetOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes, err := s.pollRepo.GetVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}

	results := buildPollResults(*poll, options, votes, userID)
	return &results, nil
}

func (s *pollService) CastVote(ctx context.Context, userID, pollID string, req *models.CastVoteRequest) (*models.PollWithResults, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Closed {
		return nil, fmt.Errorf("%w: poll is closed", pkg.ErrBadRequest)
	}
	if poll.ClosesAt != nil && !poll.ClosesAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: poll deadline has passed", pkg.ErrBadRequest)
	}

	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermViewChannel) {
		return nil, fmt.Errorf("%w: cannot view this channel", pkg.ErrForbidden)
	}

	if err := req.Validate(poll.Type); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	options, err := s.pollRepo.GetOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	validOptions := make(map[string]bool, len(options))
	for _, opt := range options {
		validOptions[opt.ID] = true
	}
	for _, optID := range req.OptionIDs {
		if !validOptions[optID] {
			return nil, fmt.Errorf("%w: invalid option id", pkg.ErrBadRequest)
		}
	}

	votes := make([]models.PollVote, len(req.OptionIDs))
	for i, optID := range req.OptionIDs {
		votes[i] = models.PollVote{OptionID: optID}
		if poll.Type == models.PollTypeRanked {
			rank := i + 1
			votes[i].Rank = &rank
		}
	}

	if err := s.pollRepo.CastVote(ctx, pollID, userID, votes); err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	allVotes, err := s.pollRepo.GetVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	results := buildPollResults(*poll, options, allVotes, userID)

	channel, err := s.channelGetter.GetByID(ctx, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastToServer(channel.ServerID, gateway.EventPollVote, map[string]any{
		"channel_id":     poll.ChannelID,
		"message_id":     poll.MessageID,
		"poll_id":        pollID,
		"options":        results.Options,
		"total_votes":    results.TotalVotes,
		"ranked_results": results.RankedResults,
	}, "")

	return &results, nil
}

func (s *pollService) RetractVote(ctx context.Context, userID, pollID string) (*models.PollWithResults, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Closed {
		return nil, fmt.Errorf("%w: poll is closed", pkg.ErrBadRequest)
	}

	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermViewChannel) {
		return nil, fmt.Errorf("%w: cannot view this channel", pkg.ErrForbidden)
	}

	if err := s.pollRepo.RetractVote(ctx, pollID, userID); err != nil {
		return nil, fmt.Errorf("failed to retract vote: %w", err)
	}

	options, err := s.pollRepo.GetOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes, err := s.pollRepo.GetVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	results := buildPollResults(*poll, options, votes, userID)

	channel, err := s.channelGetter.GetByID(ctx, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastToServer(channel.ServerID, gateway.EventPollVote, map[string]any{
		"channel_id":     poll.ChannelID,
		"message_id":     poll.MessageID,
		"poll_id":        pollID,
		"options":        results.Options,
		"total_votes":    results.TotalVotes,
		"ranked_results": results.RankedResults,
	}, "")

	return &results, nil
}

func (s *pollService) Close(ctx context.Context, userID, pollID string) (*models.PollWithResults, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Closed {
		return nil, fmt.Errorf("%w: poll is already closed", pkg.ErrBadRequest)
	}

	if poll.CreatorID != userID {
		perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, poll.ChannelID)
		if err != nil {
			return nil, err
		}
		if !perms.Has(models.PermManageMessages) {
			return nil, fmt.Errorf("%w: only the poll creator or a moderator can close it", pkg.ErrForbidden)
		}
	}

	if err := s.pollRepo.Close(ctx, pollID); err != nil {
		return nil, fmt.Errorf("failed to close poll: %w", err)
	}
	poll.Closed = true

	options, err := s.pollRepo.GetOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes, err := s.pollRepo.GetVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	results := buildPollResults(*poll, options, votes, userID)

	channel, err := s.channelGetter.GetByID(ctx, poll.ChannelID)
	if err != nil {
		return nil, err
	}
	s.broadcastClose(channel.ServerID, poll.ChannelID, poll.MessageID, pollID, results)

	return &results, nil
}

// CloseExpired closes every open poll whose deadline has passed.
// Each poll is isolated: a failure closing or broadcasting one does not
// stop the rest from being processed this tick.
func (s *pollService) CloseExpired(ctx context.Context) error {
	expired, err := s.pollRepo.GetExpiredOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expired polls: %w", err)
	}

	for _, poll := range expired {
		if err := s.pollRepo.Close(ctx, poll.ID); err != nil {
			continue
		}
		poll.Closed = true

		options, err := s.pollRepo.GetOptions(ctx, poll.ID)
		if err != nil {
			continue
		}
		votes, err := s.pollRepo.GetVotes(ctx, poll.ID)
		if err != nil {
			continue
		}
		results := buildPollResults(poll, options, votes, "")

		channel, err := s.channelGetter.GetByID(ctx, poll.ChannelID)
		if err != nil {
			continue
		}
		s.broadcastClose(channel.ServerID, poll.ChannelID, poll.MessageID, poll.ID, results)
	}

	return nil
}

func (s *pollService) broadcastClose(serverID, channelID, messageID, pollID string, results models.PollWithResults) {
	s.hub.BroadcastToServer(serverID, gateway.EventPollClose, map[string]any{
		"channel_id":     channelID,
		"message_id":     messageID,
		"poll_id":        pollID,
		"options":        results.Options,
		"total_votes":    results.TotalVotes,
		"ranked_results": results.RankedResults,
	}, "")
}

// buildPollResults tallies vote_count/percentage per option, the calling
// user's own votes, and (for ranked polls with at least one vote) the
// instant-runoff elimination order.
func buildPollResults(poll models.Poll, options []models.PollOption, votes []models.PollVote, currentUserID string) models.PollWithResults {
	voteCounts := make(map[string]int, len(options))
	voters := make(map[string][]string, len(options))
	uniqueVoters := make(map[string]bool)
	var myVotes []models.MyVote

	for _, v := range votes {
		voteCounts[v.OptionID]++
		voters[v.OptionID] = append(voters[v.OptionID], v.UserID)
		uniqueVoters[v.UserID] = true
		if v.UserID == currentUserID {
			myVotes = append(myVotes, models.MyVote{OptionID: v.OptionID, Rank: v.Rank})
		}
	}
	totalVotes := len(uniqueVoters)

	optionResults := make([]models.PollOptionResult, len(options))
	for i, opt := range options {
		count := voteCounts[opt.ID]
		percentage := 0.0
		if totalVotes > 0 {
			percentage = float64(count) / float64(totalVotes) * 100
		}
		optVoters := []string{}
		if !poll.Anonymous {
			optVoters = voters[opt.ID]
		}
		optionResults[i] = models.PollOptionResult{
			OptionID:   opt.ID,
			Label:      opt.Label,
			Position:   opt.Position,
			VoteCount:  count,
			Percentage: percentage,
			Voters:     optVoters,
		}
	}

	var ranked []models.RankedResult
	if poll.Type == models.PollTypeRanked && len(votes) > 0 {
		ranked = computeInstantRunoff(options, votes)
	}

	return models.PollWithResults{
		Poll:          poll,
		Options:       optionResults,
		TotalVotes:    totalVotes,
		MyVotes:       myVotes,
		RankedResults: ranked,
	}
}

// computeInstantRunoff eliminates the candidate(s) with the fewest
// first-choice votes each round until one candidate holds a majority of
// ballots or every remaining candidate is tied. Ported from the
// original Rust implementation's compute_instant_runoff.
func computeInstantRunoff(options []models.PollOption, votes []models.PollVote) []models.RankedResult {
	type ranked struct {
		optionID string
		rank     int
	}
	ballots := make(map[string][]ranked)
	for _, v := range votes {
		if v.Rank == nil {
			continue
		}
		ballots[v.UserID] = append(ballots[v.UserID], ranked{optionID: v.OptionID, rank: *v.Rank})
	}
	for uid := range ballots {
		b := ballots[uid]
		sort.Slice(b, func(i, j int) bool { return b[i].rank < b[j].rank })
		ballots[uid] = b
	}

	remaining := make(map[string]bool, len(options))
	for _, opt := range options {
		remaining[opt.ID] = true
	}
	eliminatedRound := make(map[string]int)
	round := 0

	for len(remaining) > 1 {
		round++

		firstChoice := make(map[string]int, len(remaining))
		for optID := range remaining {
			firstChoice[optID] = 0
		}
		totalBallots := len(ballots)

		for _, ballot := range ballots {
			for _, r := range ballot {
				if remaining[r.optionID] {
					firstChoice[r.optionID]++
					break
				}
			}
		}

		majority := totalBallots/2 + 1
		maxVotes := 0
		for _, c := range firstChoice {
			if c > maxVotes {
				maxVotes = c
			}
		}
		if maxVotes >= majority {
			break
		}

		minVotes := -1
		for _, c := range firstChoice {
			if minVotes == -1 || c < minVotes {
				minVotes = c
			}
		}

		var toEliminate []string
		for optID, c := range firstChoice {
			if c == minVotes {
				toEliminate = append(toEliminate, optID)
			}
		}

		if len(toEliminate) == len(remaining) {
			// Entire remaining set is tied — stop without eliminating anyone.
			break
		}

		for _, optID := range toEliminate {
			delete(remaining, optID)
			eliminatedRound[optID] = round
		}
	}

	finalCounts := make(map[string]int, len(remaining))
	for optID := range remaining {
		finalCounts[optID] = 0
	}
	for _, ballot := range ballots {
		for _, r := range ballot {
			if remaining[r.optionID] {
				finalCounts[r.optionID]++
				break
			}
		}
	}

	maxFinal := 0
	for _, c := range finalCounts {
		if c > maxFinal {
			maxFinal = c
		}
	}

	results := make([]models.RankedResult, 0, len(options))
	for _, opt := range options {
		count := finalCounts[opt.ID]
		results = append(results, models.RankedResult{
			OptionID:        opt.ID,
			FinalVoteCount:  count,
			EliminatedRound: eliminatedRound[opt.ID],
			Winner:          remaining[opt.ID] && count == maxFinal && count > 0,
		})
	}

	return results
}
