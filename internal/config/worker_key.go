package config

type WorkerKeyStruct struct {
	PersistExamStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistExamStatsQueue: "persist_exam_stats_queue",
}
