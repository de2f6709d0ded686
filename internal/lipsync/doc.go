// Package lipsync drives lip-sync jobs that merge dubbed audio onto video.
//
// A Job backend accepts a submission, reports status, and hands back the
// rendered video. Wait polls a backend until the job reaches a terminal state;
// failed, rejected and cancelled jobs come back as *JobError.
//
// Backends:
//   - HTTP: a hosted job API (POST /jobs, GET /jobs/{id}).
//   - Wav2Lip: a local `python3 inference.py` run in the Wav2Lip checkout.
package lipsync
