package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

// DgraphRepository serves movements and transitions from Dgraph's HTTP API.
type DgraphRepository struct {
	endpoint   string
	httpClient *http.Client
}

// NewDgraphRepository constructs the repository.
func NewDgraphRepository(endpoint string, timeout time.Duration) *DgraphRepository {
	return &DgraphRepository{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Seed upserts every movement and transition of the catalog, keeping catalog order as rank.
func (r *DgraphRepository) Seed(ctx context.Context, catalog Catalog) error {
	for i, m := range catalog.Movements {
		if err := r.upsertMovement(ctx, m, i); err != nil {
			return fmt.Errorf("seed movement %s: %w", m.ID, err)
		}
	}
	for _, t := range catalog.Transitions {
		if err := r.UpsertTransition(ctx, t); err != nil {
			return fmt.Errorf("seed transition %s -> %s: %w", t.FromPosition, t.ToPosition, err)
		}
	}
	return nil
}

// UpsertMovement creates or updates a movement node by movement_id.
func (r *DgraphRepository) UpsertMovement(ctx context.Context, m domain.Movement) error {
	return r.upsertMovement(ctx, m, 0)
}

func (r *DgraphRepository) upsertMovement(ctx context.Context, m domain.Movement, rank int) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	m = m.Normalized()
	payload := map[string]interface{}{
		"query": fmt.Sprintf(`query { movement as var(func: eq(movement_id, %s)) }`, strconv.Quote(m.ID)),
		"set":   []map[string]interface{}{buildMovementMutation(m, rank)},
	}
	return r.mutate(ctx, payload, "dgraph movement upsert")
}

func buildMovementMutation(m domain.Movement, rank int) map[string]interface{} {
	return map[string]interface{}{
		"uid":                   "uid(movement)",
		"dgraph.type":           []string{"Movement"},
		"movement_id":           m.ID,
		"name":                  m.Name,
		"difficulty":            int(m.Difficulty),
		"setup_position":        m.SetupPosition,
		"movement_family":       m.Family,
		"category":              m.Category,
		"muscle_groups":         m.MuscleGroups,
		"base_duration_seconds": m.BaseDurationSeconds,
		"catalog_rank":          rank,
	}
}

// UpsertTransition creates or updates the transition for a position pair.
func (r *DgraphRepository) UpsertTransition(ctx context.Context, t domain.Transition) error {
	key := transitionKey(t.FromPosition, t.ToPosition)
	payload := map[string]interface{}{
		"query": fmt.Sprintf(`query { transition as var(func: eq(transition_key, %s)) }`, strconv.Quote(key)),
		"set": []map[string]interface{}{{
			"uid":              "uid(transition)",
			"dgraph.type":      []string{"Transition"},
			"transition_key":   key,
			"from_position":    t.FromPosition,
			"to_position":      t.ToPosition,
			"narrative":        t.Narrative,
			"duration_seconds": t.DurationSeconds,
		}},
	}
	return r.mutate(ctx, payload, "dgraph transition upsert")
}

// DeleteMovement removes a movement node.
func (r *DgraphRepository) DeleteMovement(ctx context.Context, id string) error {
	payload := map[string]interface{}{
		"query":  fmt.Sprintf(`query { movement as var(func: eq(movement_id, %s)) }`, strconv.Quote(id)),
		"delete": []map[string]interface{}{{"uid": "uid(movement)"}},
	}
	return r.mutate(ctx, payload, "dgraph movement delete")
}

// ListMovements implements domain.MovementRepository.
func (r *DgraphRepository) ListMovements(ctx context.Context, difficulty domain.Difficulty, excludedIDs []string) ([]domain.Movement, error) {
	const query = `query movements($difficulty: int) {
  movements(func: type(Movement), orderasc: catalog_rank) @filter(le(difficulty, $difficulty)) {
    movement_id
    name
    difficulty
    setup_position
    movement_family
    category
    muscle_groups
    base_duration_seconds
  }
}`
	var result struct {
		Movements []movementNode `json:"movements"`
	}
	variables := map[string]string{"$difficulty": strconv.Itoa(int(difficulty))}
	if err := r.executeQuery(ctx, query, variables, &result); err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}
	movements := make([]domain.Movement, 0, len(result.Movements))
	for _, node := range result.Movements {
		if _, skip := excluded[node.MovementID]; skip {
			continue
		}
		movements = append(movements, node.toDomain())
	}
	return movements, nil
}

// GetTransition implements domain.TransitionRepository.
func (r *DgraphRepository) GetTransition(ctx context.Context, from, to string) (*domain.Transition, error) {
	const query = `query transition($key: string) {
  transitions(func: eq(transition_key, $key), first: 1) {
    from_position
    to_position
    narrative
    duration_seconds
  }
}`
	var result struct {
		Transitions []domain.Transition `json:"transitions"`
	}
	if err := r.executeQuery(ctx, query, map[string]string{"$key": transitionKey(from, to)}, &result); err != nil {
		return nil, err
	}
	if len(result.Transitions) == 0 {
		return nil, nil
	}
	return &result.Transitions[0], nil
}

func transitionKey(from, to string) string {
	return strings.ToLower(strings.TrimSpace(from)) + "|" + strings.ToLower(strings.TrimSpace(to))
}

type movementNode struct {
	MovementID          string   `json:"movement_id"`
	Name                string   `json:"name"`
	Difficulty          int      `json:"difficulty"`
	SetupPosition       string   `json:"setup_position"`
	Family              string   `json:"movement_family"`
	Category            string   `json:"category"`
	MuscleGroups        []string `json:"muscle_groups"`
	BaseDurationSeconds int      `json:"base_duration_seconds"`
}

func (node movementNode) toDomain() domain.Movement {
	return domain.Movement{
		ID:                  node.MovementID,
		Name:                node.Name,
		Difficulty:          domain.Difficulty(node.Difficulty),
		SetupPosition:       node.SetupPosition,
		Family:              node.Family,
		Category:            node.Category,
		MuscleGroups:        node.MuscleGroups,
		BaseDurationSeconds: node.BaseDurationSeconds,
	}
}

func (r *DgraphRepository) mutate(ctx context.Context, payload map[string]interface{}, op string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/mutate?commitNow=true", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed: %s", op, resp.Status)
	}
	return nil
}

func (r *DgraphRepository) executeQuery(ctx context.Context, query string, variables map[string]string, out interface{}) error {
	body := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/query", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dgraph query failed: %s", resp.Status)
	}

	var wrapper struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return err
	}
	if len(wrapper.Errors) > 0 {
		return fmt.Errorf("dgraph query failed: %s", wrapper.Errors[0].Message)
	}
	if len(wrapper.Data) == 0 {
		return nil
	}
	return json.Unmarshal(wrapper.Data, out)
}
