package form

import "github.com/smktahasus/psb_api/internal/models"

func f64(v float64) *float64 { return &v }

// DefaultSteps is the registration form served to every applicant. Field
// names double as column names in the remote table.
func DefaultSteps() []models.Step {
	return []models.Step{
		{
			Index: 0,
			Title: "Data Siswa",
			Fields: []models.FieldDescriptor{
				{Name: "nama_lengkap", Label: "Nama Lengkap", Type: models.FieldText, Required: true},
				{Name: "nik_siswa", Label: "NIK Siswa", Type: models.FieldText, Required: true},
				{Name: "nisn", Label: "NISN", Type: models.FieldText, Required: true},
				{Name: "tempat_lahir", Label: "Tempat Lahir", Type: models.FieldText, Required: true},
				{Name: "tanggal_lahir", Label: "Tanggal Lahir", Type: models.FieldDate, Required: true},
				{Name: "jenis_kelamin", Label: "Jenis Kelamin", Type: models.FieldRadio, Required: true,
					Options: []string{"Laki-laki", "Perempuan"}},
				{Name: "agama", Label: "Agama", Type: models.FieldSelect, Required: true,
					Options: []string{"Islam", "Kristen", "Katolik", "Hindu", "Buddha", "Konghucu"}},
				{Name: "anak_ke", Label: "Anak Ke", Type: models.FieldNumber, Min: f64(1), Max: f64(20)},
				{Name: "jumlah_saudara", Label: "Jumlah Saudara", Type: models.FieldNumber, Min: f64(0), Max: f64(20)},
				{Name: "tinggi_badan", Label: "Tinggi Badan (cm)", Type: models.FieldNumber, Min: f64(100), Max: f64(250)},
				{Name: "berat_badan", Label: "Berat Badan (kg)", Type: models.FieldNumber, Min: f64(20), Max: f64(200)},
			},
		},
		{
			Index: 1,
			Title: "Kontak dan Alamat",
			Fields: []models.FieldDescriptor{
				{Name: "alamat", Label: "Alamat Lengkap", Type: models.FieldTextarea, Required: true},
				{Name: "no_hp", Label: "No. HP", Type: models.FieldTel, Required: true},
				{Name: "email", Label: "Email", Type: models.FieldEmail},
				{Name: "asal_sekolah", Label: "Asal Sekolah", Type: models.FieldText, Required: true},
				{Name: "pilihan_jurusan", Label: "Pilihan Jurusan", Type: models.FieldSelect, Required: true,
					Options: []string{
						"Teknik Komputer dan Jaringan",
						"Rekayasa Perangkat Lunak",
						"Multimedia",
						"Akuntansi dan Keuangan Lembaga",
					}},
			},
		},
		{
			Index: 2,
			Title: "Data Orang Tua",
			Fields: []models.FieldDescriptor{
				{Name: "nama_ayah", Label: "Nama Ayah", Type: models.FieldText, Required: true},
				{Name: "nik_ayah", Label: "NIK Ayah", Type: models.FieldText, Required: true},
				{Name: "pekerjaan_ayah", Label: "Pekerjaan Ayah", Type: models.FieldText},
				{Name: "nama_ibu", Label: "Nama Ibu", Type: models.FieldText, Required: true},
				{Name: "nik_ibu", Label: "NIK Ibu", Type: models.FieldText, Required: true},
				{Name: "pekerjaan_ibu", Label: "Pekerjaan Ibu", Type: models.FieldText},
				{Name: "no_kk", Label: "No. Kartu Keluarga", Type: models.FieldText, Required: true},
				{Name: "penghasilan_ortu", Label: "Penghasilan Orang Tua", Type: models.FieldSelect,
					Options: []string{
						"Kurang dari Rp 1.000.000",
						"Rp 1.000.000 - Rp 3.000.000",
						"Rp 3.000.000 - Rp 5.000.000",
						"Lebih dari Rp 5.000.000",
					}},
				{Name: "no_hp_ortu", Label: "No. HP Orang Tua", Type: models.FieldTel},
			},
		},
		{
			Index: 3,
			Title: "Konfirmasi",
			Fields: []models.FieldDescriptor{
				{Name: "pernyataan", Label: "Pernyataan", Type: models.FieldRadio, Required: true,
					Options: []string{"Saya menyatakan data yang diisi benar"}},
				{Name: "catatan", Label: "Catatan Tambahan", Type: models.FieldTextarea},
				{Name: "formulir_versi", Label: "", Type: models.FieldHidden},
			},
		},
	}
}
