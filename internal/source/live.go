package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"ts-dashboard/internal/filter"
	"ts-dashboard/internal/gateway"
)

// Backend actions.
const (
	ActionLogin           = "login"
	ActionStations        = "getStations"
	ActionFilterOptions   = "getFilterOptions"
	ActionStationData     = "getStationData"
	ActionComparisonStats = "getComparisonStats"
	ActionComparisonTable = "getComparisonTable"
)

// flag accepts true, false, "true" and "false".
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true", `"true"`:
		*f = true
	case "false", `"false"`, "null", `""`:
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", b)
	}
	return nil
}

type loginResponse struct {
	Success  flag   `json:"success"`
	User     string `json:"user"`
	FullName string `json:"fullName"`
	IsAdmin  flag   `json:"isAdmin"`
}

type stationEntry struct {
	Name    string `json:"name"`
	Color   string `json:"color"`
	IsAdmin flag   `json:"isAdmin"`
}

type stationsResponse struct {
	Stations map[string]stationEntry `json:"stations"`
	TSConfig map[string]stationEntry `json:"tsConfig"`
}

type stationDataResponse struct {
	Stats      Stats      `json:"stats"`
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
	Charts     *struct {
		MonthlyTrends *Chart `json:"monthlyTrends"`
	} `json:"charts"`
}

type comparisonStatsResponse struct {
	Data []StationStats `json:"data"`
}

type comparisonTableResponse struct {
	Data       []Record   `json:"data"`
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// Live reads everything from the reporting backend.
type Live struct {
	gw  gateway.Gateway
	log *zap.Logger
}

// NewLive creates a backend-backed source.
func NewLive(gw gateway.Gateway, logger *zap.Logger) *Live {
	return &Live{gw: gw, log: logger}
}

func (l *Live) call(ctx context.Context, action string, params map[string]string, out any) error {
	payload, err := l.gw.Request(ctx, action, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &gateway.Error{Kind: gateway.KindTransport, Action: action, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (l *Live) Login(ctx context.Context, stationCode, digest string) (Account, error) {
	var resp loginResponse
	err := l.call(ctx, ActionLogin, map[string]string{"username": stationCode, "password": digest}, &resp)
	if err != nil {
		return Account{}, err
	}
	if !resp.Success {
		return Account{}, ErrRejected
	}

	acct := Account{StationCode: resp.User, DisplayName: resp.FullName, IsAdmin: bool(resp.IsAdmin)}
	if acct.StationCode == "" {
		acct.StationCode = stationCode
	}
	if acct.DisplayName == "" {
		acct.DisplayName = acct.StationCode
	}
	return acct, nil
}

func (l *Live) Stations(ctx context.Context) (Directory, error) {
	var resp stationsResponse
	if err := l.call(ctx, ActionStations, nil, &resp); err != nil {
		return nil, err
	}
	entries := resp.Stations
	if len(entries) == 0 {
		entries = resp.TSConfig
	}
	if len(entries) == 0 {
		return nil, &gateway.Error{Kind: gateway.KindTransport, Action: ActionStations, Err: errors.New("response contains no stations")}
	}

	dir := make(Directory, len(entries))
	for code, e := range entries {
		dir[code] = Station{Code: code, Name: e.Name, Color: e.Color, IsAdmin: bool(e.IsAdmin)}
	}
	return dir, nil
}

func (l *Live) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var resp FilterOptions
	if err := l.call(ctx, ActionFilterOptions, nil, &resp); err != nil {
		return FilterOptions{}, err
	}
	return resp, nil
}

func pageParams(q Query) (map[string]string, error) {
	encoded, err := q.Filters.Encode()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"filters":  encoded,
		"page":     strconv.Itoa(q.Page),
		"pageSize": strconv.Itoa(q.PageSize),
	}, nil
}

// fillPagination completes fields the backend left out.
func fillPagination(p Pagination, q Query) Pagination {
	if p.CurrentPage < 1 {
		p.CurrentPage = q.Page
	}
	if p.PageSize < 1 {
		p.PageSize = q.PageSize
	}
	return p
}

func (l *Live) StationData(ctx context.Context, station string, q Query) (StationData, error) {
	q = q.normalized()
	params, err := pageParams(q)
	if err != nil {
		return StationData{}, err
	}
	params["station"] = station

	var resp stationDataResponse
	if err := l.call(ctx, ActionStationData, params, &resp); err != nil {
		return StationData{}, err
	}

	data := StationData{
		Stats:      resp.Stats,
		Records:    resp.Records,
		Pagination: fillPagination(resp.Pagination, q),
	}
	if resp.Charts != nil {
		data.MonthlyTrends = resp.Charts.MonthlyTrends
	}
	return data, nil
}

func (l *Live) ComparisonStats(ctx context.Context, filters filter.Selection) ([]StationStats, error) {
	encoded, err := filters.Encode()
	if err != nil {
		return nil, err
	}
	var resp comparisonStatsResponse
	if err := l.call(ctx, ActionComparisonStats, map[string]string{"filters": encoded}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (l *Live) ComparisonTable(ctx context.Context, q Query) (TablePage, error) {
	q = q.normalized()
	params, err := pageParams(q)
	if err != nil {
		return TablePage{}, err
	}

	var resp comparisonTableResponse
	if err := l.call(ctx, ActionComparisonTable, params, &resp); err != nil {
		return TablePage{}, err
	}
	records := resp.Data
	if records == nil {
		records = resp.Records
	}
	return TablePage{Records: records, Pagination: fillPagination(resp.Pagination, q)}, nil
}
