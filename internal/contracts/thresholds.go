package contracts

// ComparatorThresholds 예측 vs 실제 비교 임계값
type ComparatorThresholds struct {
	SatisfactionMin float64 // 성공 판정 최소 만족도 (기본: 7, 1-10 척도)
	RiskThreshold   float64 // 고위험 판정 리스크 점수 (기본: 50, 0-100 척도)
	CostNoisePct    float64 // 원가 신호 최소 오차 (기본: 5%)
	Within10Pct     float64
	Within20Pct     float64
}

// DefaultComparatorThresholds 기본 비교 임계값
func DefaultComparatorThresholds() ComparatorThresholds {
	return ComparatorThresholds{
		SatisfactionMin: 7,
		RiskThreshold:   50,
		CostNoisePct:    5,
		Within10Pct:     10,
		Within20Pct:     20,
	}
}

// LedgerThresholds 추세 계산 임계값
type LedgerThresholds struct {
	MinTrendSample int     // 추세 계산 최소 비교 수 (기본: 4)
	RateDelta      float64 // score/risk 정답률 변화 (기본: 0.05)
	CostMAEDelta   float64 // 원가 MAE 변화 (기본: 2pt)
}

// DefaultLedgerThresholds 기본 원장 임계값
func DefaultLedgerThresholds() LedgerThresholds {
	return LedgerThresholds{
		MinTrendSample: 4,
		RateDelta:      0.05,
		CostMAEDelta:   2,
	}
}

// CalibrationThresholds 벤치마크 보정 임계값
type CalibrationThresholds struct {
	MinGroupSize        int     // 그룹 최소 비교 수 (기본: 3)
	MinDominantCount    int     // 우세 신호 최소 개수 (기본: 3)
	DominanceRatio      float64 // 반대 방향 대비 배수 (기본: 2, strictly greater)
	MaxCostChangePct    float64 // 1회 보정 상한 (기본: 15%)
	RiskIncreaseDelta   float64 // 기본: +0.10
	RiskDecreaseDelta   float64 // 기본: -0.05
	HighConfidenceCount int     // 기본: 5
	HighConfidence      float64 // 기본: 0.90
	StandardConfidence  float64 // 기본: 0.75
}

// DefaultCalibrationThresholds 기본 보정 임계값
func DefaultCalibrationThresholds() CalibrationThresholds {
	return CalibrationThresholds{
		MinGroupSize:        3,
		MinDominantCount:    3,
		DominanceRatio:      2,
		MaxCostChangePct:    15,
		RiskIncreaseDelta:   0.10,
		RiskDecreaseDelta:   -0.05,
		HighConfidenceCount: 5,
		HighConfidence:      0.90,
		StandardConfidence:  0.75,
	}
}

// WeightThresholds 가중치 민감도 분석 임계값
type WeightThresholds struct {
	MinMisses      int     // 분석 최소 오판 수 (기본: 5)
	MinTally       int     // 차원별 최소 집계 수 (기본: 5)
	DominanceShare float64 // 범주 내 점유율 (기본: 0.5, strictly greater)
	AdjustmentPct  float64 // 제안 조정폭 (기본: 5%)
}

// DefaultWeightThresholds 기본 가중치 임계값
func DefaultWeightThresholds() WeightThresholds {
	return WeightThresholds{
		MinMisses:      5,
		MinTally:       5,
		DominanceShare: 0.5,
		AdjustmentPct:  5,
	}
}

// AlertThresholds 알림 규칙 임계값
type AlertThresholds struct {
	MinAccuracyPct        float64 // 기본: 60%
	MinGradedForAccuracy  int     // 정확도 알림 최소 등급 비교 수 (기본: 5)
	BenchmarkDriftPct     float64 // 기본: 15%
	MissClusterSize       int     // outside_20pct 최소 건수 (기본: 3)
	OpportunityConfidence float64 // 기본: 0.7
}

// DefaultAlertThresholds 기본 알림 임계값
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MinAccuracyPct:        60,
		MinGradedForAccuracy:  5,
		BenchmarkDriftPct:     15,
		MissClusterSize:       3,
		OpportunityConfidence: 0.7,
	}
}
