// Package mongodb implements the taxonomy and progress repositories on MongoDB
// using the official driver. It reads the document shapes the earlier
// deployment wrote, including the i_id, q_id, se_id, and start_param fields.
package mongodb
