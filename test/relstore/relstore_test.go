package relstore_test

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/test/util"
)

func newStore(t *testing.T) *relstore.Store {
	t.Helper()
	connStr := util.NewIsolatedSchema(t)

	cfg, err := parseConnString(connStr)
	require.NoError(t, err)

	store, err := relstore.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

// parseConnString adapts the testcontainers connection string (which
// already carries user/password/host/port/database/sslmode/search_path)
// into the config.RelationalConfig fields relstore.New's DSN builder
// expects.
func parseConnString(connStr string) (config.RelationalConfig, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return config.RelationalConfig{}, err
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return config.RelationalConfig{}, err
	}

	password, _ := u.User.Password()
	database := strings.TrimPrefix(u.Path, "/")

	q := u.Query()

	return config.RelationalConfig{
		Host:       u.Hostname(),
		Port:       port,
		User:       u.User.Username(),
		Password:   password,
		Database:   database,
		SSLMode:    sslModeOrDefault(q.Get("sslmode")),
		SearchPath: q.Get("search_path"),
	}, nil
}

func sslModeOrDefault(s string) string {
	if s == "" {
		return "disable"
	}
	return s
}

func TestFragmentInsertFetchIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	projectID := "proj-1"

	frag := domain.Fragment{
		FragmentID: "frag-1",
		ProjectID:  projectID,
		Archivo:    "entrevista_01.docx",
		ParIdx:     0,
		Speaker:    "P1",
		Text:       "hoy quiero hablar sobre el proceso de incorporacion",
		CharLen:    52,
		Metadata:   map[string]string{"area_tematica": "onboarding"},
		CreatedAt:  time.Now(),
	}

	require.NoError(t, store.InsertFragment(ctx, frag))
	require.NoError(t, store.InsertFragment(ctx, frag)) // idempotent re-ingest

	got, err := store.FetchFragment(ctx, projectID, "frag-1")
	require.NoError(t, err)
	assert.Equal(t, frag.Text, got.Text)
	assert.Equal(t, "onboarding", got.Metadata["area_tematica"])

	exists, err := store.ExistsFragment(ctx, projectID, "frag-1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.FetchFragment(ctx, projectID, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCandidatePromoteIsSingleTransactionAndIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	projectID := "proj-2"

	frag := domain.Fragment{
		FragmentID: "frag-2", ProjectID: projectID, Archivo: "entrevista_02.docx",
		ParIdx: 0, Text: "me parecio dificil adaptarme al principio", CharLen: 42,
	}
	require.NoError(t, store.InsertFragment(ctx, frag))

	fragID := frag.FragmentID
	cand := domain.CandidateCode{
		ProjectID: projectID, Codigo: "dificultad_adaptacion", FragmentID: &fragID,
		Archivo: frag.Archivo, Cita: frag.Text, SourceOrigin: domain.SourceLLM,
		ScoreConfidence: 0.8, Status: domain.StatusPendiente,
	}
	ids, err := store.InsertCandidates(ctx, []domain.CandidateCode{cand}, false)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	oc, err := store.Promote(ctx, projectID, ids[0], "tester")
	require.NoError(t, err)
	assert.Equal(t, "dificultad_adaptacion", oc.Codigo)

	pending, err := store.CountPending(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	require.NoError(t, store.UnassignOpenCode(ctx, projectID, fragID, "dificultad_adaptacion", "tester"))

	// Re-promoting the same candidate after the unassign re-creates its
	// open_codes row even though the candidate was already marked
	// validado once; ON CONFLICT DO NOTHING keeps it to one row.
	oc2, err := store.Promote(ctx, projectID, ids[0], "tester")
	require.NoError(t, err)
	assert.Equal(t, oc.Codigo, oc2.Codigo)

	coded, err := store.CodedFragmentsForCode(ctx, projectID, "dificultad_adaptacion")
	require.NoError(t, err)
	assert.True(t, coded[fragID])
}

func TestPromoteRejectsHipotesisWithoutFragment(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	projectID := "proj-3"

	cand := domain.CandidateCode{
		ProjectID: projectID, Codigo: "hipotesis_general", SourceOrigin: domain.SourceLLM,
		ScoreConfidence: 0.5, Status: domain.StatusHipotesis,
	}
	ids, err := store.InsertCandidates(ctx, []domain.CandidateCode{cand}, false)
	require.NoError(t, err)

	_, err = store.Promote(ctx, projectID, ids[0], "tester")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSaturationCurveIsCumulativeAndOrderedByIngest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	projectID := "proj-4"

	seed := func(archivo, fragID, codigo string) {
		require.NoError(t, store.InsertFragment(ctx, domain.Fragment{
			FragmentID: fragID, ProjectID: projectID, Archivo: archivo, ParIdx: 0,
			Text: "texto de ejemplo", CharLen: 16,
		}))
		cand := domain.CandidateCode{
			ProjectID: projectID, Codigo: codigo, FragmentID: &fragID, Archivo: archivo,
			SourceOrigin: domain.SourceManual, ScoreConfidence: 1, Status: domain.StatusPendiente,
		}
		ids, err := store.InsertCandidates(ctx, []domain.CandidateCode{cand}, false)
		require.NoError(t, err)
		_, err = store.Promote(ctx, projectID, ids[0], "tester")
		require.NoError(t, err)
	}

	seed("entrevista_01.docx", "f1", "codigo_a")
	time.Sleep(10 * time.Millisecond)
	seed("entrevista_02.docx", "f2", "codigo_b")
	time.Sleep(10 * time.Millisecond)
	seed("entrevista_03.docx", "f3", "codigo_a") // repeat: no new distinct code

	curve, err := store.SaturationCurve(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, curve, 3)
	assert.Equal(t, "entrevista_01.docx", curve[0].Archivo)
	assert.Equal(t, 1, curve[0].CumulativeDistinct)
	assert.Equal(t, 2, curve[1].CumulativeDistinct)
	assert.Equal(t, 2, curve[2].CumulativeDistinct) // plateau: no new distinct code added

	assert.True(t, relstore.PlateauReached(curve, 2, 1))
}

func TestRunnerTaskClaimSkipsLockedAndMarksRunning(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	task := domain.RunnerTask{
		TaskID:   "task-1",
		OwnerUser: "alice",
		OwnerOrg:  "acme",
		Status:    domain.RunnerPending,
		Input:     domain.RunnerInput{Project: "proj-5"},
	}
	require.NoError(t, store.UpsertRunnerTask(ctx, task))

	claimed, err := store.ClaimPendingTask(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task-1", claimed.TaskID)
	assert.Equal(t, domain.RunnerRunning, claimed.Status)

	_, err = store.ClaimPendingTask(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
