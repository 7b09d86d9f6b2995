//go:build integration

package repository

// Run with `make test-integration` (Docker required). CI runs it in the
// integration job of .github/workflows/test.yml.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"hospital-booking/config"
	"hospital-booking/internal/domain/entity"
	domainRepo "hospital-booking/internal/domain/repository"
	"hospital-booking/internal/infrastructure/database"
	"hospital-booking/pkg/clock"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const (
	testDBUser     = "booking"
	testDBPassword = "booking"
	testDBName     = "booking_test"
)

func startPostgres(t *testing.T) config.DBConfig {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     testDBUser,
			"POSTGRES_PASSWORD": testDBPassword,
			"POSTGRES_DB":       testDBName,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DBConfig{
		Host:     host,
		Port:     port.Port(),
		User:     testDBUser,
		Password: testDBPassword,
		Name:     testDBName,
		SSLMode:  "disable",
	}
}

func setupIntegrationStore(t *testing.T, strategy ClaimStrategy) (domainRepo.ReservationStore, *gorm.DB) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := startPostgres(t)
	require.NoError(t, database.Migrate(cfg.URL(), log))

	db, err := database.NewPostgresConnection(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := NewReservationStore(db, log, clock.NewRealClock(), NewAuditLogRepository(), ReservationStoreConfig{
		Strategy:    strategy,
		LockTimeout: 5 * time.Second,
		MaxRetries:  3,
		RetryBase:   10 * time.Millisecond,
	})
	return store, db
}

func TestReservationStoreIntegration_ConcurrentClaims(t *testing.T) {
	for _, strategy := range []ClaimStrategy{ClaimStrategyOptimistic, ClaimStrategyPessimistic} {
		t.Run(string(strategy), func(t *testing.T) {
			store, db := setupIntegrationStore(t, strategy)
			ctx := context.Background()

			slot, err := entity.ParseSlotKey("2025-03-10", "10:00 AM")
			require.NoError(t, err)

			const contenders = 20
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				winners   int
				conflicts int
				others    []error
			)

			start := make(chan struct{})
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res := entity.NewReservation(slot, entity.PatientPayload{
						Name:  fmt.Sprintf("Patient %d", i),
						Phone: fmt.Sprintf("08123456%02d", i),
					}, entity.BookingChannelPublic, time.Now().UTC())
					res.BookingReference = fmt.Sprintf("BK-250310-TEST%04d", i)

					<-start
					err := store.Claim(ctx, res, "public")

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						winners++
					case errors.Is(err, domainRepo.ErrSlotConflict):
						conflicts++
					default:
						others = append(others, err)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Empty(t, others)
			assert.Equal(t, 1, winners)
			assert.Equal(t, contenders-1, conflicts)

			confirmed, err := store.FindConfirmedByDate(ctx, "2025-03-10")
			require.NoError(t, err)
			require.Len(t, confirmed, 1)

			var audits int64
			require.NoError(t, db.Model(&entity.AuditLog{}).Where("action = ?", entity.AuditActionReservationCreate).Count(&audits).Error)
			assert.Equal(t, int64(1), audits)
		})
	}
}

func TestReservationStoreIntegration_CancelReopensSlot(t *testing.T) {
	store, _ := setupIntegrationStore(t, ClaimStrategyPessimistic)
	ctx := context.Background()

	slot, err := entity.ParseSlotKey("2025-03-10", "02:30 PM")
	require.NoError(t, err)

	first := entity.NewReservation(slot, entity.PatientPayload{Name: "Ana", Phone: "0812345678"}, entity.BookingChannelPublic, time.Now().UTC())
	first.BookingReference = "BK-250310-FIRST000"
	require.NoError(t, store.Claim(ctx, first, "public"))

	available, err := store.IsAvailable(ctx, slot)
	require.NoError(t, err)
	assert.False(t, available)

	cancelled, err := store.Cancel(ctx, first.ID, "admin:desk@hospital.test", "patient called")
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())

	_, err = store.Cancel(ctx, first.ID, "admin:desk@hospital.test", "")
	assert.ErrorIs(t, err, domainRepo.ErrReservationNotConfirmed)

	available, err = store.IsAvailable(ctx, slot)
	require.NoError(t, err)
	assert.True(t, available)

	second := entity.NewReservation(slot, entity.PatientPayload{Name: "Bo", Phone: "0812345679"}, entity.BookingChannelAdmin, time.Now().UTC())
	second.BookingReference = "BK-250310-SECOND00"
	require.NoError(t, store.Claim(ctx, second, "admin:desk@hospital.test"))

	all, err := store.FindByDateRange(ctx, "2025-03-10", "2025-03-10")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.NotEqual(t, all[0].BookingReference, all[1].BookingReference)

	dup := entity.NewReservation(slot, entity.PatientPayload{Name: "Cy", Phone: "0812345670"}, entity.BookingChannelPublic, time.Now().UTC())
	dup.BookingReference = second.BookingReference
	err = store.Claim(ctx, dup, "public")
	assert.True(t, errors.Is(err, domainRepo.ErrSlotConflict) || errors.Is(err, domainRepo.ErrReferenceConflict))
}
