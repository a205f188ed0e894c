package ml

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const artifactSchema = `
CREATE TABLE IF NOT EXISTS model (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS feature_names (
    position INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS classes (
    position INTEGER PRIMARY KEY,
    name TEXT,
    code INTEGER
);
CREATE TABLE IF NOT EXISTS labels (
    code INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS coefficients (
    class_idx INTEGER NOT NULL,
    feature_idx INTEGER NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (class_idx, feature_idx)
);
CREATE TABLE IF NOT EXISTS intercepts (
    class_idx INTEGER PRIMARY KEY,
    value REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS tree_nodes (
    idx INTEGER PRIMARY KEY,
    feature_idx INTEGER NOT NULL,
    threshold REAL NOT NULL,
    left_child INTEGER NOT NULL,
    right_child INTEGER NOT NULL,
    class_label INTEGER NOT NULL,
    is_leaf INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scaler (
    position INTEGER PRIMARY KEY,
    mean REAL,
    scale REAL,
    min REAL,
    max REAL
);`

// SaveSQLite writes the artifact to a new SQLite file.
func SaveSQLite(artifact *Artifact, path string) (err error) {
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("refusing to export invalid artifact: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	// a failed export leaves no half-written database behind
	defer func() {
		database.Close()
		if err != nil {
			os.Remove(path)
		}
	}()

	tx, err := database.Begin()
	if err != nil {
		return err
	}
	if err = writeArtifact(tx, artifact); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeArtifact(tx *sql.Tx, a *Artifact) error {
	if _, err := tx.Exec(artifactSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	meta := map[string]string{"type": a.Type, "description": a.Description}
	if a.Scaler != nil {
		meta["scaler"] = a.Scaler.Kind
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO model (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	for i, name := range a.FeatureNames {
		if _, err := tx.Exec(`INSERT INTO feature_names (position, name) VALUES (?, ?)`, i, name); err != nil {
			return err
		}
	}
	for i, name := range a.Classes {
		if _, err := tx.Exec(`INSERT INTO classes (position, name) VALUES (?, ?)`, i, name); err != nil {
			return err
		}
	}
	for i, code := range a.ClassCodes {
		if _, err := tx.Exec(`INSERT INTO classes (position, code) VALUES (?, ?)`, i, code); err != nil {
			return err
		}
	}
	for code, name := range a.Labels {
		if _, err := tx.Exec(`INSERT INTO labels (code, name) VALUES (?, ?)`, code, name); err != nil {
			return err
		}
	}
	for c, row := range a.Coef {
		for f, value := range row {
			if _, err := tx.Exec(`INSERT INTO coefficients (class_idx, feature_idx, value) VALUES (?, ?, ?)`, c, f, value); err != nil {
				return err
			}
		}
	}
	for c, value := range a.Intercept {
		if _, err := tx.Exec(`INSERT INTO intercepts (class_idx, value) VALUES (?, ?)`, c, value); err != nil {
			return err
		}
	}
	for i, n := range a.Nodes {
		_, err := tx.Exec(`INSERT INTO tree_nodes (idx, feature_idx, threshold, left_child, right_child, class_label, is_leaf)
            VALUES (?, ?, ?, ?, ?, ?, ?)`, i, n.FeatureIdx, n.Threshold, n.LeftChild, n.RightChild, n.ClassLabel, n.IsLeaf)
		if err != nil {
			return err
		}
	}
	if a.Scaler != nil {
		return writeScaler(tx, a.Scaler)
	}
	return nil
}

func writeScaler(tx *sql.Tx, s *Scaler) error {
	for i := 0; i < s.width(); i++ {
		var err error
		if s.Kind == ScalerMinMax {
			_, err = tx.Exec(`INSERT INTO scaler (position, min, max) VALUES (?, ?, ?)`, i, s.Min[i], s.Max[i])
		} else {
			_, err = tx.Exec(`INSERT INTO scaler (position, mean, scale) VALUES (?, ?, ?)`, i, s.Mean[i], s.Scale[i])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readSQLiteArtifact loads every table and closes the database before
// returning, so no handle outlives startup.
func readSQLiteArtifact(path string) (*Artifact, error) {
	database, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer database.Close()

	var a Artifact
	if err := database.QueryRow(`SELECT value FROM model WHERE key = 'type'`).Scan(&a.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: model type not recorded", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	_ = database.QueryRow(`SELECT value FROM model WHERE key = 'description'`).Scan(&a.Description)

	if a.FeatureNames, err = queryStrings(database, `SELECT name FROM feature_names ORDER BY position`); err != nil {
		return nil, err
	}
	if err := readClasses(database, &a); err != nil {
		return nil, err
	}
	if a.Labels, err = queryStrings(database, `SELECT name FROM labels ORDER BY code`); err != nil {
		return nil, err
	}
	if err := readCoefficients(database, &a); err != nil {
		return nil, err
	}
	if err := readTree(database, &a); err != nil {
		return nil, err
	}
	if err := readScaler(database, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func queryStrings(database *sql.DB, query string) ([]string, error) {
	rows, err := database.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func readClasses(database *sql.DB, a *Artifact) error {
	rows, err := database.Query(`SELECT name, code FROM classes ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name sql.NullString
		var code sql.NullInt64
		if err := rows.Scan(&name, &code); err != nil {
			return err
		}
		if name.Valid {
			a.Classes = append(a.Classes, name.String)
		}
		if code.Valid {
			a.ClassCodes = append(a.ClassCodes, int(code.Int64))
		}
	}
	return rows.Err()
}

func readCoefficients(database *sql.DB, a *Artifact) error {
	rows, err := database.Query(`SELECT class_idx, feature_idx, value FROM coefficients ORDER BY class_idx, feature_idx`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c, f int
		var value float64
		if err := rows.Scan(&c, &f, &value); err != nil {
			return err
		}
		for len(a.Coef) <= c {
			a.Coef = append(a.Coef, nil)
		}
		if f != len(a.Coef[c]) {
			return fmt.Errorf("coefficient row %d is missing feature %d", c, len(a.Coef[c]))
		}
		a.Coef[c] = append(a.Coef[c], value)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	irows, err := database.Query(`SELECT value FROM intercepts ORDER BY class_idx`)
	if err != nil {
		return err
	}
	defer irows.Close()
	for irows.Next() {
		var value float64
		if err := irows.Scan(&value); err != nil {
			return err
		}
		a.Intercept = append(a.Intercept, value)
	}
	return irows.Err()
}

func readTree(database *sql.DB, a *Artifact) error {
	rows, err := database.Query(`SELECT feature_idx, threshold, left_child, right_child, class_label, is_leaf FROM tree_nodes ORDER BY idx`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var n TreeNode
		if err := rows.Scan(&n.FeatureIdx, &n.Threshold, &n.LeftChild, &n.RightChild, &n.ClassLabel, &n.IsLeaf); err != nil {
			return err
		}
		a.Nodes = append(a.Nodes, n)
	}
	return rows.Err()
}

func readScaler(database *sql.DB, a *Artifact) error {
	var kind string
	err := database.QueryRow(`SELECT value FROM model WHERE key = 'scaler'`).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	rows, err := database.Query(`SELECT mean, scale, min, max FROM scaler ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s := &Scaler{Kind: kind}
	for rows.Next() {
		var mean, scale, min, max sql.NullFloat64
		if err := rows.Scan(&mean, &scale, &min, &max); err != nil {
			return err
		}
		if kind == ScalerMinMax {
			s.Min = append(s.Min, min.Float64)
			s.Max = append(s.Max, max.Float64)
		} else {
			s.Mean = append(s.Mean, mean.Float64)
			s.Scale = append(s.Scale, scale.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	a.Scaler = s
	return nil
}
