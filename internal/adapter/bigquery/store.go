// Package bigquery implements the calibration and reading stores against the
// BigQuery warehouse. Table and column names follow the production
// mesuradors dataset so the service is drop-in against existing data.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bq "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/mesuradors/tank-telemetry/internal/config"
	"github.com/mesuradors/tank-telemetry/internal/domain"
	"google.golang.org/api/iterator"
)

// Store talks to the warehouse: calibration lookups, streaming reading
// inserts, and the read-only status view queries.
type Store struct {
	client         *bq.Client
	projectID      string
	datasetID      string
	metersTable    string
	readingsTable  string
	statusView     string
	rawPayloadJSON bool
	logger         *slog.Logger
}

// NewStore creates a warehouse client using application default credentials.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	client, err := bq.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &Store{
		client:         client,
		projectID:      cfg.ProjectID,
		datasetID:      cfg.DatasetID,
		metersTable:    cfg.MetersTable,
		readingsTable:  cfg.ReadingsTable,
		statusView:     cfg.StatusView,
		rawPayloadJSON: cfg.RawPayloadJSON,
		logger:         logger,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// tableID returns the fully qualified `project.dataset.name` identifier used
// in query text.
func (s *Store) tableID(name string) string {
	return fmt.Sprintf("%s.%s.%s", s.projectID, s.datasetID, name)
}

// Ping runs a trivial query to verify the warehouse is reachable and the
// credentials work.
func (s *Store) Ping(ctx context.Context) error {
	it, err := s.client.Query("SELECT 1").Read(ctx)
	if err != nil {
		return fmt.Errorf("warehouse ping: %w", err)
	}
	var row []bq.Value
	if err := it.Next(&row); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("warehouse ping: %w", err)
	}
	return nil
}

// GetCalibration looks up the calibration row for a device id. Missing rows
// map to domain.ErrCalibrationNotFound.
func (s *Store) GetCalibration(ctx context.Context, deviceID string) (domain.Calibration, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT meter_id, scale_type, h_sensor_cm, zm_sensor_cm, litres_diposit, display_unit, group_id
		FROM %s
		WHERE meter_id = @meter_id
		LIMIT 1
	`, "`"+s.tableID(s.metersTable)+"`"))
	q.Parameters = []bq.QueryParameter{{Name: "meter_id", Value: deviceID}}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Calibration{}, &domain.StorageError{Op: "calibration query", Err: err}
	}

	var row calibrationRow
	if err := it.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return domain.Calibration{}, fmt.Errorf("device %q: %w", deviceID, domain.ErrCalibrationNotFound)
		}
		return domain.Calibration{}, &domain.StorageError{Op: "calibration scan", Err: err}
	}
	return row.toDomain(), nil
}

// InsertReading streams one canonical reading into the readings table. The
// insert carries a UUID InsertID so BigQuery can de-duplicate retried
// deliveries best-effort.
func (s *Store) InsertReading(ctx context.Context, r domain.Reading) error {
	ins := s.client.Dataset(s.datasetID).Table(s.readingsTable).Inserter()
	row := &readingRow{
		reading:        r,
		insertID:       uuid.NewString(),
		rawPayloadJSON: s.rawPayloadJSON,
	}
	if err := ins.Put(ctx, row); err != nil {
		s.logger.Error("reading insert failed", "device_id", r.DeviceID, "error", err)
		return &domain.StorageError{Op: "insert", Err: err}
	}
	return nil
}

// ListLocations returns the distinct non-null locations from the status view.
func (s *Store) ListLocations(ctx context.Context) ([]string, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT DISTINCT ubicacio
		FROM %s
		WHERE ubicacio IS NOT NULL
		ORDER BY ubicacio
	`, "`"+s.tableID(s.statusView)+"`"))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "locations query", Err: err}
	}

	var locations []string
	for {
		var row struct {
			Ubicacio string `bigquery:"ubicacio"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &domain.StorageError{Op: "locations scan", Err: err}
		}
		locations = append(locations, row.Ubicacio)
	}
	return locations, nil
}

// StatusByLocation returns the status view rows for one location, ordered by
// sensor.
func (s *Store) StatusByLocation(ctx context.Context, location string) ([]domain.DeviceStatus, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT ubicacio, sensor, rang, v_act, unit, pct, estat, ultima_lectura
		FROM %s
		WHERE ubicacio = @ubicacio
		ORDER BY sensor
	`, "`"+s.tableID(s.statusView)+"`"))
	q.Parameters = []bq.QueryParameter{{Name: "ubicacio", Value: location}}

	return s.readStatusRows(ctx, q)
}

// StatusAll returns every status view row, ordered by location then sensor.
func (s *Store) StatusAll(ctx context.Context) ([]domain.DeviceStatus, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT ubicacio, sensor, rang, v_act, unit, pct, estat, ultima_lectura
		FROM %s
		ORDER BY ubicacio, sensor
	`, "`"+s.tableID(s.statusView)+"`"))

	return s.readStatusRows(ctx, q)
}

func (s *Store) readStatusRows(ctx context.Context, q *bq.Query) ([]domain.DeviceStatus, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "status query", Err: err}
	}

	var rows []domain.DeviceStatus
	for {
		var row statusRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &domain.StorageError{Op: "status scan", Err: err}
		}
		rows = append(rows, row.toDomain())
	}
	return rows, nil
}

// calibrationRow mirrors the meters table schema. Geometry and labels are
// individually nullable.
type calibrationRow struct {
	MeterID        string         `bigquery:"meter_id"`
	ScaleType      bq.NullString  `bigquery:"scale_type"`
	SensorHeightCm bq.NullFloat64 `bigquery:"h_sensor_cm"`
	DeadZoneCm     bq.NullFloat64 `bigquery:"zm_sensor_cm"`
	CapacityLiters bq.NullFloat64 `bigquery:"litres_diposit"`
	DisplayUnit    bq.NullString  `bigquery:"display_unit"`
	GroupID        bq.NullString  `bigquery:"group_id"`
}

func (r calibrationRow) toDomain() domain.Calibration {
	return domain.Calibration{
		DeviceID:       r.MeterID,
		ScaleType:      nullString(r.ScaleType),
		SensorHeightCm: nullFloat(r.SensorHeightCm),
		DeadZoneCm:     nullFloat(r.DeadZoneCm),
		CapacityLiters: nullFloat(r.CapacityLiters),
		DisplayUnit:    nullString(r.DisplayUnit),
		GroupID:        nullString(r.GroupID),
	}
}

// statusRow mirrors the v_estat_scada view schema.
type statusRow struct {
	Ubicacio      bq.NullString    `bigquery:"ubicacio"`
	Sensor        bq.NullString    `bigquery:"sensor"`
	Rang          bq.NullString    `bigquery:"rang"`
	VAct          bq.NullFloat64   `bigquery:"v_act"`
	Unit          bq.NullString    `bigquery:"unit"`
	Pct           bq.NullFloat64   `bigquery:"pct"`
	Estat         bq.NullString    `bigquery:"estat"`
	UltimaLectura bq.NullTimestamp `bigquery:"ultima_lectura"`
}

func (r statusRow) toDomain() domain.DeviceStatus {
	st := domain.DeviceStatus{
		Location: nullString(r.Ubicacio),
		Sensor:   nullString(r.Sensor),
		Range:    nullString(r.Rang),
		Value:    nullFloat(r.VAct),
		Unit:     nullString(r.Unit),
		Percent:  nullFloat(r.Pct),
		State:    nullString(r.Estat),
	}
	if r.UltimaLectura.Valid {
		t := r.UltimaLectura.Timestamp.UTC()
		st.LastReading = &t
	}
	return st
}

// readingRow adapts a domain.Reading to the readings table schema. It
// implements bigquery.ValueSaver so optional columns stay NULL instead of
// zero-valued.
type readingRow struct {
	reading        domain.Reading
	insertID       string
	rawPayloadJSON bool
}

func (r *readingRow) Save() (map[string]bq.Value, string, error) {
	vals := map[string]bq.Value{
		"event_time": r.reading.EventTime.Format(time.RFC3339Nano),
		"meter_id":   r.reading.DeviceID,
		"value":      r.reading.Value,
		"raw":        string(r.reading.AuditPayload),
		"raw_value":  r.reading.RawValue,
	}
	setString(vals, "group_id", r.reading.GroupID)
	setString(vals, "location", r.reading.Location)
	setString(vals, "unit", r.reading.DisplayUnit)
	setString(vals, "raw_unit", r.reading.RawUnit)
	setString(vals, "uplink_id", r.reading.UplinkID)
	setFloat(vals, "battery_v", r.reading.BatteryVolts)
	setFloat(vals, "temperature_c", r.reading.TemperatureC)
	setFloat(vals, "tilt_deg", r.reading.TiltDegrees)
	if r.rawPayloadJSON {
		vals["raw_payload"] = string(r.reading.AuditPayload)
	}
	return vals, r.insertID, nil
}

func setString(vals map[string]bq.Value, key, v string) {
	if v != "" {
		vals[key] = v
	}
}

func setFloat(vals map[string]bq.Value, key string, v *float64) {
	if v != nil {
		vals[key] = *v
	}
}

func nullString(v bq.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.StringVal
}

func nullFloat(v bq.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
