// internal/workers/matching/list-matches/handler.go
package listmatches

import (
	"context"
	"time"

	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "list-matches"
)

type Service interface {
	ListMatchesForProfile(ctx context.Context, profileID string) ([]models.MatchView, error)
}

type Handler struct {
	config  *Config
	service Service
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service Service, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewJobRunner(TaskType, validator, config.Timeout, log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	views, err := h.service.ListMatchesForProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, err
	}

	output := &Output{
		ProfileID: input.ProfileID,
		Matches:   make([]MatchItem, 0, len(views)),
	}
	for _, v := range views {
		output.Matches = append(output.Matches, toItem(input.ProfileID, v))
	}

	h.logger.Debug("matches listed", map[string]interface{}{
		"profileId": input.ProfileID,
		"count":     len(output.Matches),
	})
	return output, nil
}

func toItem(profileID string, v models.MatchView) MatchItem {
	m := v.Match
	item := MatchItem{
		MatchID:      m.ID,
		OverallScore: m.OverallScore,
		MatchType:    string(m.MatchType),
		Explanation:  m.Explanation,
		Status:       string(m.Status),
	}

	switch m.SideOf(profileID) {
	case models.SideA:
		item.MyStatus = string(m.StatusA)
	case models.SideB:
		item.MyStatus = string(m.StatusB)
	}
	if m.MeetingTime != nil {
		item.MeetingTime = m.MeetingTime.UTC().Format(time.RFC3339)
	}
	if m.MeetingLocation != nil {
		item.MeetingLocation = *m.MeetingLocation
	}

	if v.Other != nil {
		item.Other = &PartyDetail{
			ProfileID:  v.Other.ID,
			Name:       v.Other.Name,
			Title:      v.Other.Title,
			Company:    v.Other.Company,
			TicketType: v.Other.TicketType.String(),
		}
	}
	return item
}
