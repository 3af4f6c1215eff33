// Package security holds the TLS settings of the HTTP channel.
//
//	server:
//	  tls:
//	    cert_file: /etc/video-transcriber/cert.pem
//	    key_file: /etc/video-transcriber/key.pem
//	    client_ca_file: /etc/video-transcriber/clients.pem  # optional, mutual TLS
//
// Without a certificate the server speaks cleartext HTTP/2 (h2c), which is
// the default for a loopback listener.
package security
