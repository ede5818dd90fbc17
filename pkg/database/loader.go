package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"quick-ratio/pkg/logger"
	"quick-ratio/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb://, mysql://, sqlite:// ou DSN MySQL natif → *sql.DB
// Renvoie aussi le DSN effectivement utilisé par le driver.
func Open(dsn string) (*sql.DB, string, error) {
	driver, driverDSN, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, "", err
	}
	if driver == "sqlite3" {
		// une seule connexion : une base :memory: n'est pas partagée entre connexions
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, driverDSN, nil
}

func resolveDSN(dsn string) (driver, driverDSN string, err error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("dsn sqlite incomplet (chemin)")
		}
		return "sqlite3", path, nil
	case dsn == "sqlite::memory:":
		return "sqlite3", ":memory:", nil
	}
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return "", "", err
	}
	return "mysql", mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		// Toujours en UTC : la troncature au jour se fait en UTC
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// LoadTable lit toutes les colonnes d'une table sous forme de texte.
// Les NULL deviennent des cellules vides (écartées ensuite par le nettoyage).
func LoadTable(ctx context.Context, db *sql.DB, tableName string) (models.Table, error) {
	if !tableNamePattern.MatchString(tableName) {
		return models.Table{}, fmt.Errorf("table invalide: %q", tableName)
	}
	log := logger.GetLogger().WithComponent("database").WithFields(logger.Fields{"table": tableName})

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return models.Table{}, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return models.Table{}, err
	}
	table := models.Table{Columns: columns}

	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	nulls := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return models.Table{}, err
		}
		row := make([]string, len(columns))
		for i, c := range cells {
			if !c.Valid {
				nulls++
				continue
			}
			row[i] = c.String
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, err
	}

	log.WithFields(logger.Fields{
		"columns": len(columns),
		"rows":    len(table.Rows),
		"nulls":   nulls,
	}).Debug("table loaded")
	return table, nil
}
