package pdftest

// Report returns a three page statistical report:
//
//  1. a table of contents with bold label listings
//  2. ruled table "표 2-1" and figure "그림 2-1" with an image
//  3. unruled, digit dense table "표 4-2"
func Report() []byte {
	d := New()

	toc := d.AddPage()
	toc.Text(Bold, 16, 60, 80, "목 차")
	toc.Text(Bold, 10, 60, 120, "표 2-1 연도별 발전량 ........ 2")
	toc.Text(Bold, 10, 60, 140, "표 4-2 지역별 연료비 ........ 3")
	toc.Text(Bold, 10, 60, 160, "그림 2-1 발전 설비 현황 ........ 2")

	ruled := d.AddPage()
	ruled.Text(Regular, 10, 60, 70, "1. 발전 현황")
	ruled.Text(Bold, 11, 60, 100, "표 2-1 연도별 발전량")
	ruled.Rect(60, 115, 475, 100)
	for _, y := range []float64{140, 165, 190} {
		ruled.Line(60, y, 535, y)
	}
	ruled.Line(200, 115, 200, 215)
	rows := [][3]string{
		{"구분", "2022", "2023"},
		{"석탄", "198.4", "184.9"},
		{"원자력", "176.1", "180.5"},
		{"LNG", "163.5", "157.6"},
	}
	for i, row := range rows {
		y := 132 + 25*float64(i)
		ruled.Text(Regular, 10, 70, y, row[0])
		ruled.Text(Regular, 10, 220, y, row[1])
		ruled.Text(Regular, 10, 380, y, row[2])
	}
	ruled.Text(Bold, 11, 60, 260, "그림 2-1 발전 설비 현황")
	ruled.Image(100, 280, 300, 200)

	dense := d.AddPage()
	dense.Text(Bold, 11, 60, 100, "표 4-2 지역별 연료비")
	rows = [][3]string{
		{"지역", "2022", "2023"},
		{"서울", "1,234", "1,310"},
		{"부산", "987", "1,002"},
		{"대구", "654", "701"},
	}
	for i, row := range rows {
		y := 125 + 20*float64(i)
		dense.Text(Regular, 10, 70, y, row[0])
		dense.Text(Regular, 10, 220, y, row[1])
		dense.Text(Regular, 10, 380, y, row[2])
	}
	dense.Text(Regular, 9, 60, 400, "자료: 한국전력공사")

	return d.Bytes()
}
