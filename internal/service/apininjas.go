package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
)

// exercisesPageSize is the number of exercises the API returns per offset step.
const exercisesPageSize = 10

// APINinjasClient fetches reference exercise and nutrition data.
type APINinjasClient struct {
	client *resty.Client
	delay  time.Duration
	logger *logger.Logger
}

// NewAPINinjasClient creates a client with a fixed timeout, a pause between
// requests and retries on throttling or server errors.
// Parameters:
//   - api: base URL, key, timeout and request delay.
//   - etl: retry count and delay.
//   - log: logger for progress messages.
// Returns:
//   - *APINinjasClient: ready client.
func NewAPINinjasClient(api config.APIConfig, etl config.ETLConfig, log *logger.Logger) *APINinjasClient {
	timeout := time.Duration(api.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(api.BaseURL, "/")).
		SetHeader("X-Api-Key", api.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(etl.MaxRetries).
		SetRetryWaitTime(etl.RetryDelay()).
		SetRetryMaxWaitTime(4 * etl.RetryDelay()).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &APINinjasClient{
		client: client,
		delay:  time.Duration(api.RequestDelayMs) * time.Millisecond,
		logger: log,
	}
}

// Exercise is one record of the exercises endpoint.
type Exercise struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Muscle       string   `json:"muscle"`
	Difficulty   string   `json:"difficulty"`
	Equipment    string   `json:"equipment"`
	Equipments   textList `json:"equipments"`
	Instructions string   `json:"instructions"`
	SafetyInfo   string   `json:"safety_info"`
}

// NutritionItem is one record of the nutrition endpoint. Premium-only fields
// come back as text on free keys and decode as null.
type NutritionItem struct {
	Name                string      `json:"name"`
	Calories            optionalNum `json:"calories"`
	ServingSizeG        optionalNum `json:"serving_size_g"`
	FatTotalG           optionalNum `json:"fat_total_g"`
	FatSaturatedG       optionalNum `json:"fat_saturated_g"`
	ProteinG            optionalNum `json:"protein_g"`
	SodiumMg            optionalNum `json:"sodium_mg"`
	PotassiumMg         optionalNum `json:"potassium_mg"`
	CholesterolMg       optionalNum `json:"cholesterol_mg"`
	CarbohydratesTotalG optionalNum `json:"carbohydrates_total_g"`
	FiberG              optionalNum `json:"fiber_g"`
	SugarG              optionalNum `json:"sugar_g"`
}

type optionalNum struct {
	Value float64
	Valid bool
}

func (n *optionalNum) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = optionalNum{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = optionalNum{Value: f, Valid: true}
			return nil
		}
	}
	*n = optionalNum{}
	return nil
}

func (n optionalNum) cell() any {
	if !n.Valid {
		return nil
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// textList accepts a string or a list of strings.
type textList string

func (t *textList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = textList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = textList(strings.Join(list, ", "))
	return nil
}

type apiError struct {
	Error string `json:"error"`
}

func (c *APINinjasClient) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay):
		return nil
	}
}

// FetchExercises pages through the exercises of a muscle group by offset until
// the API returns an empty page or maxResults is reached.
func (c *APINinjasClient) FetchExercises(ctx context.Context, muscle string, maxResults int) ([]Exercise, error) {
	var all []Exercise
	for offset := 0; len(all) < maxResults; offset += exercisesPageSize {
		var page []Exercise
		var apiErr apiError
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"muscle": muscle,
				"offset": strconv.Itoa(offset),
			}).
			SetResult(&page).
			SetError(&apiErr).
			Get("/exercises")
		if err != nil {
			return all, fmt.Errorf("failed to call exercises API: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return all, fmt.Errorf("exercises API error: status %d %s", resp.StatusCode(), apiErr.Error)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		c.logger.Debugf("Fetched %d %s exercises (total %d)", len(page), muscle, len(all))

		if err := c.pause(ctx); err != nil {
			return all, err
		}
	}
	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all, nil
}

// LookupNutrition returns the first nutrition match for a food, or nil when the
// API knows nothing about it.
func (c *APINinjasClient) LookupNutrition(ctx context.Context, food string) (*NutritionItem, error) {
	var items []NutritionItem
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("query", food).
		SetResult(&items).
		SetError(&apiErr).
		Get("/nutrition")
	if err != nil {
		return nil, fmt.Errorf("failed to call nutrition API: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("nutrition API error: status %d %s", resp.StatusCode(), apiErr.Error)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FetchNutrition looks up each food in turn. Foods that fail or have no match
// are logged and skipped.
func (c *APINinjasClient) FetchNutrition(ctx context.Context, foods []string) ([]NutritionItem, error) {
	var out []NutritionItem
	for i, food := range foods {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return out, err
			}
		}
		item, err := c.LookupNutrition(ctx, food)
		if err != nil {
			c.logger.WithError(err).Warnf("Nutrition lookup failed for %s", food)
			continue
		}
		if item == nil {
			c.logger.Infof("%s: no data", food)
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

// ExercisesDataset converts exercises into a raw exercises dataset, keeping the
// first record of each name.
func ExercisesDataset(exercises []Exercise) *domain.Dataset {
	schema, _ := domain.SchemaFor(domain.KindExercises)
	ds := domain.NewDataset(domain.KindExercises, schema.SourceColumns())
	seen := make(map[string]bool, len(exercises))
	for _, e := range exercises {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true

		equipments := string(e.Equipments)
		if equipments == "" {
			equipments = e.Equipment
		}
		ds.Append([]any{
			textCell(e.Name), textCell(e.Type), textCell(e.Muscle), textCell(e.Difficulty),
			textCell(equipments), textCell(e.Instructions), textCell(e.SafetyInfo),
		})
	}
	return ds
}

// NutritionDataset converts nutrition items into a raw nutrition dataset.
func NutritionDataset(items []NutritionItem) *domain.Dataset {
	schema, _ := domain.SchemaFor(domain.KindNutrition)
	ds := domain.NewDataset(domain.KindNutrition, schema.SourceColumns())
	for _, n := range items {
		ds.Append([]any{
			textCell(n.Name),
			n.Calories.cell(), n.ServingSizeG.cell(), n.FatTotalG.cell(), n.FatSaturatedG.cell(),
			n.ProteinG.cell(), n.SodiumMg.cell(), n.PotassiumMg.cell(), n.CholesterolMg.cell(),
			n.CarbohydratesTotalG.cell(), n.FiberG.cell(), n.SugarG.cell(),
		})
	}
	return ds
}

func textCell(s string) any {
	if s == "" {
		return nil
	}
	return s
}
