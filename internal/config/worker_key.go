package config

type WorkerKeyStruct struct {
	GradingQueue string
}

var WorkerKey = &WorkerKeyStruct{
	GradingQueue: "grading_queue",
}
