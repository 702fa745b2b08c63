package models

import "time"

// DashboardMetrics 汇总指标（服务端基于当前患者集合计算）
type DashboardMetrics struct {
	TotalPatients   int     `json:"totalPatients"`
	HighRiskCount   int     `json:"highRiskCount"`
	AvgLengthOfStay float64 `json:"avgLengthOfStay"` // 天
	ReadmissionRate float64 `json:"readmissionRate"` // 百分比
}

// DistributionBucket 风险 / 年龄分布桶
type DistributionBucket struct {
	RangeLabel string `json:"rangeLabel"`
	Count      int    `json:"count"`
}

// DiagnosisShare 诊断占比
type DiagnosisShare struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

// TimelinePoint 入院时间线（最近 30 天，由旧到新）
type TimelinePoint struct {
	Date       string `json:"date"`
	Admissions int    `json:"admissions"`
}

// AgeRiskPoint 各年龄段平均风险（0–100）
type AgeRiskPoint struct {
	AgeGroup string  `json:"ageGroup"`
	AvgRisk  float64 `json:"avgRisk"`
}

// Dashboard 仪表盘视图模型（六个查询全部成功后才组装）
type Dashboard struct {
	Metrics            DashboardMetrics     `json:"metrics"`
	RiskDistribution   []DistributionBucket `json:"riskDistribution"`
	AgeDistribution    []DistributionBucket `json:"ageDistribution"`
	DiagnosisBreakdown []DiagnosisShare     `json:"diagnosisBreakdown"`
	AdmissionsTimeline []TimelinePoint      `json:"admissionsTimeline"`
	RiskByAge          []AgeRiskPoint       `json:"riskByAge"`
	RefreshedAt        time.Time            `json:"refreshedAt"`
}
