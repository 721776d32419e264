package http

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/application/dto"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
)

func moneyPtr(m *money.Money) *string {
	if m == nil {
		return nil
	}
	s := m.Major()
	return &s
}

func pctPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func toRegisterResponse(r *entity.CashRegister) dto.CashRegisterResponse {
	return dto.CashRegisterResponse{
		ID:               r.ID,
		CompanyID:        r.CompanyID,
		BranchID:         r.BranchID,
		Name:             r.Name,
		Currency:         r.Currency,
		Status:           r.Status,
		OpeningBalance:   r.OpeningBalance.Major(),
		CurrentBalance:   r.CurrentBalance.Major(),
		CurrentSessionID: r.CurrentSessionID,
		LastOpenedAt:     r.LastOpenedAt,
		LastOpenedBy:     r.LastOpenedBy,
		LastClosedAt:     r.LastClosedAt,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toSessionResponse(s *entity.CashSession) dto.CashSessionResponse {
	return dto.CashSessionResponse{
		ID:              s.ID,
		RegisterID:      s.RegisterID,
		Status:          s.Status,
		Currency:        s.Currency,
		OpeningBalance:  s.OpeningBalance.Major(),
		OpenedBy:        s.OpenedBy,
		OpenedAt:        s.OpenedAt,
		ClosedBy:        s.ClosedBy,
		ClosedAt:        s.ClosedAt,
		ComputedBalance: moneyPtr(s.ComputedBalance),
		DeclaredBalance: moneyPtr(s.DeclaredBalance),
		Discrepancy:     moneyPtr(s.Discrepancy),
		DiscrepancyPct:  pctPtr(s.DiscrepancyPct),
		Classification:  s.Classification,
		Withdrawal:      moneyPtr(s.Withdrawal),
		FinalBalance:    moneyPtr(s.FinalBalance),
		Notes:           s.Notes,
	}
}

func toMovementResponse(m *entity.CashMovement) dto.CashMovementResponse {
	return dto.CashMovementResponse{
		ID:           m.ID,
		RegisterID:   m.RegisterID,
		SessionID:    m.SessionID,
		Sequence:     m.Sequence,
		Kind:         m.Kind,
		Amount:       m.Amount.Major(),
		BalanceAfter: m.BalanceAfter.Major(),
		Currency:     m.Amount.Currency,
		ActorID:      m.ActorID,
		ReferenceID:  m.ReferenceID,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

func toClosingReportResponse(r *cashdrawer.ClosingReport) dto.ClosingReportResponse {
	return dto.ClosingReportResponse{
		RegisterID:      r.RegisterID,
		SessionID:       r.SessionID,
		Currency:        r.ComputedBalance.Currency,
		OpeningBalance:  r.OpeningBalance.Major(),
		ComputedBalance: r.ComputedBalance.Major(),
		DeclaredBalance: moneyPtr(r.DeclaredBalance),
		Discrepancy:     r.Discrepancy.Major(),
		DiscrepancyPct:  pctPtr(r.DiscrepancyPct),
		Classification:  r.Classification,
		Withdrawal:      moneyPtr(r.Withdrawal),
		FinalBalance:    r.FinalBalance.Major(),
		CacheRepaired:   r.CacheRepaired,
		ClosedBy:        r.ClosedBy,
		ClosedAt:        r.ClosedAt,
	}
}

func toReconciliationResponse(r *cashdrawer.Reconciliation) dto.ReconciliationResponse {
	return dto.ReconciliationResponse{
		RegisterID:      r.RegisterID,
		SessionID:       r.SessionID,
		Currency:        r.Computed.Currency,
		ComputedBalance: r.Computed.Major(),
		CachedBalance:   r.Cached.Major(),
		Discrepancy:     r.Discrepancy.Major(),
		Consistent:      r.Consistent,
		CacheStale:      r.CacheStale,
		MovementCount:   r.MovementCount,
		Anomalies:       r.Anomalies,
	}
}
