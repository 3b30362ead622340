// Package devstack provisions disposable backing services for local
// development and integration testing. Expects environment variables to be
// loaded from .env files.
package devstack

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vcredible/vcredible-api/internal/utils"
)

// Stack holds the running containers for one dev session.
type Stack struct {
	Network     *testcontainers.DockerNetwork
	DBContainer testcontainers.Container

	// Connection details for the host side, populated by Create.
	DBHost string
	DBPort string
}

// Terminate tears the stack down in reverse start order.
func (s *Stack) Terminate(t *testing.T) {
	ctx := context.Background()
	if s.DBContainer != nil {
		if err := s.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate database: %v", err)
		}
	}
	if s.Network != nil {
		if err := s.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// Create starts the database container and initializes the application
// database and users. Pass a nil *testing.T to run outside the test
// framework; failures then exit the process.
func Create(t *testing.T) (*Stack, error) {
	ctx := context.Background()
	stack := &Stack{}

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	stack.Network = nw
	networkName := nw.Name

	dbType := envOr("DB_TYPE", "mariadb")
	dbImage := envOr("DB_IMAGE", "mariadb:11")
	dbNetworkName := envOr("DB_HOST", "vcredible-db")
	tcpDBPort, err := nat.NewPort("tcp", envOr("DB_PORT", defaultDBPort(dbType)))
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to create DB port")
	}

	// Pre-pull only when the image is not already local; keeps repeated
	// runs off the registry.
	if exists, err := imageExists(ctx, dbImage); err == nil && exists {
		logMessage(t, "Image %s exists, reusing...", dbImage)
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage,
			ExposedPorts: []string{string(tcpDBPort)},
			Env:          dbInitEnvMap(dbType),
			WaitingFor:   wait.ForListeningPort(tcpDBPort).WithStartupTimeout(60 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {dbNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to start database")
	}
	stack.DBContainer = dbContainer

	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDBPort)
	stack.DBHost = dbHost
	stack.DBPort = dbPort.Port()

	switch dbType {
	case "mysql", "mariadb":
		if err := initMySQL(t, stack, dbHost, dbPort); err != nil {
			stack.Terminate(t)
			exitWithError(t, err, "Failed to initialize database")
		}
	case "postgres":
		// Postgres images create the database and user from env on boot.
	}

	logMessage(t, "DB_HOST=%s DB_PORT=%s", stack.DBHost, stack.DBPort)
	logMessage(t, "Dev stack started successfully")
	return stack, nil
}

func defaultDBPort(dbType string) string {
	if dbType == "postgres" {
		return "5432"
	}
	return "3306"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func rootPassword() string {
	if v := os.Getenv("DB_ROOT_PASSWORD"); v != "" {
		return v
	}
	// Random per-session root password; the stack is disposable.
	return uuid.NewString()
}

var sessionRootPassword = rootPassword()

func dbInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": envOr("DB_PASSWORD", "vcredible"),
			"POSTGRES_USER":     envOr("DB_USER", "vcredible"),
			"POSTGRES_DB":       envOr("DB_DATABASE", "vcredible"),
		}
	default:
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": sessionRootPassword,
			"MYSQL_DATABASE":      envOr("DB_DATABASE", "vcredible"),
			"MYSQL_USER":          envOr("DB_USER", "vcredible"),
			"MYSQL_PASSWORD":      envOr("DB_PASSWORD", "vcredible"),
		}
	}
}

func initMySQL(t *testing.T, stack *Stack, dbHost string, dbPort nat.Port) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", sessionRootPassword, dbHost, dbPort.Port()))
	if err != nil {
		return err
	}
	defer db.Close()

	// Wait for the connection to be really ready. The TCP check comes
	// first because the server accepts connections before auth is up.
	for i := 0; i < 30; i++ {
		if err = utils.PingDatabase(dbHost, dbPort.Port()); err == nil {
			err = db.Ping()
		}
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("database not ready after 30 seconds: %w", err)
	}

	database := envOr("DB_DATABASE", "vcredible")
	user := envOr("DB_USER", "vcredible")

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)); err != nil {
		return fmt.Errorf("failed to create %s: %w", database, err)
	}
	if _, err := db.Exec(fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO '%s'@'%%'", database, user)); err != nil {
		return fmt.Errorf("failed to grant privileges to %s: %w", user, err)
	}
	if _, err := db.Exec("FLUSH PRIVILEGES"); err != nil {
		return fmt.Errorf("failed to flush privileges: %w", err)
	}

	return nil
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
