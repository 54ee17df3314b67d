// Package references resolves the reference images stored for a patient's
// medicine and downloads candidate image bytes. Reference objects live in a
// Supabase storage bucket under a caregiver-scoped path; resolution walks
// patient row -> caregiver id -> bucket listing -> signed URLs.
package references
