package service

import (
	"context"
	"testing"

	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionForwardStep(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	d := store.addDebtor(&models.Debtor{Name: "Unidade Sul"})

	err := svc.Transition(context.Background(), d.ID, models.StatusPendenteGrave, []string{models.ReasonValorAlto}, "ana", "")
	require.NoError(t, err)

	got, err := store.FindDebtorByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendenteGrave, got.LegalStatus)
	require.NotNil(t, got.LastEscalationAt)
	assert.Equal(t, testNow, *got.LastEscalationAt)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, models.StatusRegular, entry.FromStatus)
	assert.Equal(t, models.StatusPendenteGrave, entry.ToStatus)
	assert.Equal(t, []string{models.ReasonValorAlto}, entry.ReasonCodes)
	assert.Equal(t, "ana", entry.Actor)
}

func TestTransitionRejectsSkips(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	d := store.addDebtor(&models.Debtor{Name: "Unidade Norte"})

	var invalidErr *InvalidTransitionError
	err := svc.Transition(context.Background(), d.ID, models.StatusAcionado, nil, "ana", "")
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, models.StatusRegular, invalidErr.From)
	assert.Equal(t, models.StatusAcionado, invalidErr.To)

	err = svc.Transition(context.Background(), d.ID, models.StatusNotificado, nil, "ana", "")
	require.ErrorAs(t, err, &invalidErr)

	// No mutation and no audit entries after rejected attempts.
	got, err := store.FindDebtorByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegular, got.LegalStatus)
	assert.Empty(t, store.logs)
}

func TestTransitionRejectsBackward(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	d := store.addDebtor(&models.Debtor{Name: "Unidade Leste", LegalStatus: models.StatusEmAnalise})

	var invalidErr *InvalidTransitionError
	err := svc.Transition(context.Background(), d.ID, models.StatusPendenteGrave, nil, "ana", "")
	require.ErrorAs(t, err, &invalidErr)
}

func TestTransitionResolvidoJumpException(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)

	// Any non-regular state may jump straight to resolvido.
	for _, from := range []models.LegalStatus{
		models.StatusPendenteGrave,
		models.StatusNotificado,
		models.StatusEmAnalise,
		models.StatusPreProcesso,
		models.StatusAcionado,
	} {
		d := store.addDebtor(&models.Debtor{Name: "Unidade " + string(from), LegalStatus: from})
		err := svc.Transition(context.Background(), d.ID, models.StatusResolvido, nil, "ana", "quitado")
		assert.NoError(t, err, "from %s", from)
	}

	// Regular has nothing to resolve; the jump is not allowed there.
	d := store.addDebtor(&models.Debtor{Name: "Unidade Regular"})
	var invalidErr *InvalidTransitionError
	err := svc.Transition(context.Background(), d.ID, models.StatusResolvido, nil, "ana", "")
	require.ErrorAs(t, err, &invalidErr)
}

func TestTransitionUnknownStatus(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	d := store.addDebtor(&models.Debtor{Name: "Unidade Oeste"})

	var validationErr *ValidationError
	err := svc.Transition(context.Background(), d.ID, models.LegalStatus("banido"), nil, "ana", "")
	require.ErrorAs(t, err, &validationErr)
}

func TestTransitionConcurrencyConflict(t *testing.T) {
	store := newFakeStore()
	d := store.addDebtor(&models.Debtor{Name: "Unidade Centro"})

	// Another actor moves the debtor between our read and write.
	read, err := store.FindDebtorByID(context.Background(), d.ID)
	require.NoError(t, err)
	require.NoError(t, store.UpdateDebtorStatusCAS(context.Background(), d.ID, read.LegalStatus, models.StatusPendenteGrave, testNow))

	var conflictErr *ConcurrencyConflictError
	err = store.UpdateDebtorStatusCAS(context.Background(), d.ID, read.LegalStatus, models.StatusPendenteGrave, testNow)
	require.ErrorAs(t, err, &conflictErr)
}

func TestResetToRegularNotLogged(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	d := store.addDebtor(&models.Debtor{Name: "Unidade Quitada", LegalStatus: models.StatusNotificado})
	c := store.addCase(&models.Case{DebtorID: d.ID, Principal: 800, DueDate: testNow.AddDate(0, 0, -20), Status: models.CaseStatusOpen})

	require.NoError(t, svc.SettleCase(context.Background(), c.ID, "ana"))

	got, err := store.FindDebtorByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegular, got.LegalStatus)
	assert.Empty(t, store.logs, "debt-cleared reset must not appear in the escalation log")
}
