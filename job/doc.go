// Package job runs transcriptions as staged jobs.
//
// A job moves strictly forward through
//
//	queued -> acquiring -> extracting -> transcribing -> writing -> done
//
// and stops at the first failing stage with a *StageError naming the stage
// and its cause. Local files skip acquiring. Every transition is recorded in
// the job's transition log and published on its event channel.
//
// Jobs are detached from the request that started them: a dropped client
// connection never stops a job, only Job.Cancel does.
package job
